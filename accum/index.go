// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accum

import (
	"github.com/akualab/bw/lattice"
)

// None is the local id of a parameter that does not apply to a state.
const None = lattice.None

// StateIDs are the local parameter ids of a lattice state.
type StateIDs struct {
	TMat   int
	MixW   int
	CB     int
	CIMixW int
	CICB   int
}

// IndexMap translates local ids into global ids.
type IndexMap struct {
	TMat []int
	MixW []int
	CB   []int

	// Local ids for each lattice state.
	States []StateIDs
}

// NewIndexMap assigns local ids in order of first appearance in the lattice.
// CI mixtures and codebooks share the local id space with the CD ones.
func NewIndexMap(lat *lattice.Lattice) *IndexMap {

	im := &IndexMap{States: make([]StateIDs, lat.Len())}
	tm := make(map[int]int)
	mw := make(map[int]int)
	cb := make(map[int]int)

	local := func(m map[int]int, ids *[]int, g int) int {
		if g < 0 {
			return None
		}
		if l, ok := m[g]; ok {
			return l
		}
		l := len(*ids)
		m[g] = l
		*ids = append(*ids, g)
		return l
	}

	for i, s := range lat.States {
		im.States[i] = StateIDs{
			TMat:   local(tm, &im.TMat, s.TMat),
			MixW:   local(mw, &im.MixW, s.MixW),
			CB:     local(cb, &im.CB, s.CB),
			CIMixW: local(mw, &im.MixW, s.CIMixW),
			CICB:   local(cb, &im.CB, s.CICB),
		}
	}
	return im
}
