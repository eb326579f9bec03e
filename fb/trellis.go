// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fb

import (
	"math"
	"sort"
)

// Frame holds the active states of a time step. Values at index k belong
// to state States[k]. States are sorted.
type Frame struct {
	States []int
	Alpha  []float64
	Beta   []float64

	// Best predecessor (frame, state). BPFrame is -1 for the initial state.
	BPFrame []int
	BPState []int

	// Best log-likelihood per stream used to normalize densities.
	Norm  []float64
	Scale float64
}

// Slot returns the index of state j in the frame or -1.
func (f *Frame) Slot(j int) int {
	k := sort.SearchInts(f.States, j)
	if k < len(f.States) && f.States[k] == j {
		return k
	}
	return -1
}

// Trellis is the sparse result of the forward pass.
type Trellis struct {
	Frames []Frame

	// Scaled alpha of the final state at the last frame.
	AlphaFinal float64
}

// NumFrames returns the number of frames.
func (tr *Trellis) NumFrames() int { return len(tr.Frames) }

// LogLikelihood returns the utterance log-likelihood:
// log(alpha_final) - sum(log(scale)) + sum(norm).
func (tr *Trellis) LogLikelihood() float64 {
	ll := math.Log(tr.AlphaFinal)
	for _, f := range tr.Frames {
		ll -= math.Log(f.Scale)
		for _, n := range f.Norm {
			ll += n
		}
	}
	return ll
}

// NumActive returns the total number of active states over all frames.
func (tr *Trellis) NumActive() int {
	n := 0
	for _, f := range tr.Frames {
		n += len(f.States)
	}
	return n
}
