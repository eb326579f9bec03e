// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fb

import (
	"github.com/akualab/bw/accum"
	"github.com/akualab/bw/lattice"
	"github.com/akualab/bw/model"
	"github.com/pkg/errors"
)

// Viterbi follows the forward backpointers from the final state and
// accumulates counts along the best path with unit state occupancy.
// Returns the number of transitions on the path.
func Viterbi(tr *Trellis, lat *lattice.Lattice, feats [][][]float64, inv *model.Inventory, sc *Scorer, local *accum.Local) (int, error) {

	nf := tr.NumFrames()
	if nf == 0 {
		return 0, ErrNoFrames
	}
	acc := newAccumulator(lat, feats, inv, sc, local)
	ids := local.Map.States

	t, j := nf-1, lat.Final()
	steps := 0
	for {
		fr := &tr.Frames[t]
		k := fr.Slot(j)
		if k < 0 {
			return steps, errors.Wrapf(ErrFinalStateUnreached, "no backpointer to state [%d] at frame [%d]", j, t)
		}
		st := &lat.States[j]
		if st.Emitting() {
			den, err := sc.Densities(t, st.CB)
			if err != nil {
				return steps, err
			}
			if err := acc.state(t, j, den, fr.Norm, 1); err != nil {
				return steps, err
			}
		}
		pt, pj := fr.BPFrame[k], fr.BPState[k]
		if pt < 0 {
			break
		}
		if local.Classes.TMat {
			for _, arc := range st.Prev {
				if arc.From == pj && arc.Row >= 0 {
					local.AddTrans(ids[pj].TMat, arc.Row, arc.Col, 1)
					break
				}
			}
		}
		t, j = pt, pj
		steps++
	}
	if t != 0 || j != 0 {
		return steps, errors.Wrapf(ErrFinalStateUnreached, "path starts at state [%d] frame [%d]", j, t)
	}
	return steps, nil
}
