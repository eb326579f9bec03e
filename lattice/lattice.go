// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package lattice defines the sentence-level state sequence of an utterance.

A Lattice is an ordered list of states. State 0 is the only entry state and
must be emitting. The last state is the non-emitting final state. Non-emitting
states are traversed without consuming a frame, so every arc into a
non-emitting state must come from a state with a lower index. This lets the
forward pass visit them in increasing order and the backward pass in
decreasing order within a frame.
*/
package lattice

import (
	"github.com/pkg/errors"
)

// None is the id used for parameters that do not apply to a state.
const None = -1

// Arc is a transition into a state.
type Arc struct {
	From int
	Prob float64

	// Row and Col locate the transition in the transition matrix of the
	// source state. Row < 0 marks a transition that is not reestimated.
	Row, Col int
}

// State is an HMM state in the sentence lattice.
type State struct {
	TMat int
	MixW int
	CB   int

	// Context independent twins.
	CITMat int
	CIMixW int
	CICB   int

	Prev  []Arc
	NSucc int

	next []int
}

// NonEmitting returns a state that does not consume frames.
func NonEmitting(prev ...Arc) State {
	return State{
		TMat: None, MixW: None, CB: None,
		CITMat: None, CIMixW: None, CICB: None,
		Prev: prev,
	}
}

// Emitting returns true if the state has an output distribution.
func (s *State) Emitting() bool { return s.MixW >= 0 }

// Next returns the indices of the successor states. Set by Validate.
func (s *State) Next() []int { return s.next }

// Lattice is the state sequence for one utterance.
type Lattice struct {
	States []State
}

// Len returns the number of states.
func (l *Lattice) Len() int { return len(l.States) }

// Final returns the index of the final state.
func (l *Lattice) Final() int { return len(l.States) - 1 }

// Validate checks the topology and computes successor lists.
func (l *Lattice) Validate() error {

	n := len(l.States)
	if n < 2 {
		return errors.Errorf("lattice: need at least two states, have [%d]", n)
	}
	if !l.States[0].Emitting() {
		return errors.Errorf("lattice: initial state must be emitting")
	}
	final := n - 1
	if l.States[final].Emitting() {
		return errors.Errorf("lattice: final state must be non-emitting")
	}
	for i := range l.States {
		l.States[i].next = l.States[i].next[:0]
		l.States[i].NSucc = 0
	}
	for j := range l.States {
		s := &l.States[j]
		if j > 0 && len(s.Prev) == 0 {
			return errors.Errorf("lattice: state [%d] is unreachable", j)
		}
		for _, a := range s.Prev {
			switch {
			case a.From < 0 || a.From >= n:
				return errors.Errorf("lattice: state [%d] has predecessor [%d] out of range", j, a.From)
			case a.From == final:
				return errors.Errorf("lattice: final state cannot have successors")
			case !(a.Prob > 0 && a.Prob <= 1):
				return errors.Errorf("lattice: arc [%d]->[%d] has invalid probability %g", a.From, j, a.Prob)
			case !s.Emitting() && a.From >= j:
				return errors.Errorf("lattice: arc [%d]->[%d] into non-emitting state must come from a lower index", a.From, j)
			case a.Row >= 0 && l.States[a.From].TMat < 0:
				return errors.Errorf("lattice: arc [%d]->[%d] is reestimated but source has no tmat", a.From, j)
			}
			src := &l.States[a.From]
			src.next = append(src.next, j)
			src.NSucc++
		}
	}
	for i, s := range l.States {
		if i != final && s.NSucc == 0 {
			return errors.Errorf("lattice: state [%d] is a dead end", i)
		}
	}
	return nil
}
