// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package model holds the current parameter estimates used by the trainer.

An Inventory is read-only while utterances are processed. Reestimation sums
live in package accum and are never stored in the inventory.

Parameter ids are global: a transition matrix id indexes TMat, a mixture
weight id (senone) indexes MixW and a codebook id indexes Mean and Var.
*/
package model

import (
	"math"

	"github.com/akualab/bw"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const probTolerance = 1e-4

// Def describes a model: a transition matrix and one senone per emitting state.
type Def struct {
	TMat    int   `json:"tmat"`
	Senones []int `json:"senones"`
	// Name of the context independent model used for the CI twins.
	// Empty when the model is itself context independent.
	CI string `json:"ci,omitempty"`
}

// Inventory is the set of parameters being trained.
type Inventory struct {
	NumStreams   int   `json:"num_streams"`
	VectorLength []int `json:"vector_length"`
	NumDensities int   `json:"num_densities"`

	// Transition probabilities [tmat][from][to]. A matrix for a model with
	// n emitting states is n x (n+1); column n is the exit.
	TMat [][][]float64 `json:"tmat"`

	// Mixture weights [mixw][stream][density].
	MixW [][][]float64 `json:"mixw"`

	// Codebook used by each mixture.
	MixWCodebook []int `json:"mixw_codebook"`

	// Gaussian parameters [codebook][stream][density][dim].
	Mean [][][][]float64 `json:"mean"`
	Var  [][][][]float64 `json:"var"`

	Models map[string]*Def `json:"models"`
}

// NumTMat returns the number of transition matrices.
func (inv *Inventory) NumTMat() int { return len(inv.TMat) }

// NumMixW returns the number of mixture weight sets (tied states).
func (inv *Inventory) NumMixW() int { return len(inv.MixW) }

// NumCodebooks returns the number of Gaussian codebooks.
func (inv *Inventory) NumCodebooks() int { return len(inv.Mean) }

// NumStates returns the number of emitting states of a transition matrix.
func (inv *Inventory) NumStates(tmat int) int { return len(inv.TMat[tmat]) }

// Codebook returns the codebook for a mixture id.
func (inv *Inventory) Codebook(mixw int) int { return inv.MixWCodebook[mixw] }

// Validate checks the shapes of all parameters.
func (inv *Inventory) Validate() error {

	if inv.NumStreams <= 0 || len(inv.VectorLength) != inv.NumStreams {
		return errors.Errorf("model: bad stream definition: num_streams=%d vector_length=%v", inv.NumStreams, inv.VectorLength)
	}
	if inv.NumDensities <= 0 {
		return errors.Errorf("model: num_densities must be positive")
	}
	for id, tm := range inv.TMat {
		n := len(tm)
		if n == 0 {
			return errors.Errorf("model: tmat [%d] is empty", id)
		}
		for i, row := range tm {
			if len(row) != n+1 {
				return errors.Errorf("model: tmat [%d] row [%d] has [%d] columns, expected [%d]", id, i, len(row), n+1)
			}
			var sum float64
			for _, p := range row {
				if p < 0 || p > 1 || math.IsNaN(p) {
					return errors.Errorf("model: tmat [%d] row [%d] has invalid probability %g", id, i, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > probTolerance {
				return errors.Errorf("model: tmat [%d] row [%d] sums to %g", id, i, sum)
			}
		}
	}
	if len(inv.MixWCodebook) != len(inv.MixW) {
		return errors.Errorf("model: [%d] mixtures but [%d] codebook assignments", len(inv.MixW), len(inv.MixWCodebook))
	}
	for id, mw := range inv.MixW {
		if len(mw) != inv.NumStreams {
			return errors.Errorf("model: mixw [%d] has [%d] streams", id, len(mw))
		}
		for s, w := range mw {
			if len(w) != inv.NumDensities {
				return errors.Errorf("model: mixw [%d] stream [%d] has [%d] densities", id, s, len(w))
			}
		}
		if cb := inv.MixWCodebook[id]; cb < 0 || cb >= len(inv.Mean) {
			return errors.Errorf("model: mixw [%d] uses unknown codebook [%d]", id, cb)
		}
	}
	if len(inv.Mean) != len(inv.Var) {
		return errors.Errorf("model: [%d] mean codebooks, [%d] variance codebooks", len(inv.Mean), len(inv.Var))
	}
	for cb := range inv.Mean {
		if e := inv.checkGauden(cb, inv.Mean[cb], "mean"); e != nil {
			return e
		}
		if e := inv.checkGauden(cb, inv.Var[cb], "var"); e != nil {
			return e
		}
	}
	for name, def := range inv.Models {
		if def.TMat < 0 || def.TMat >= len(inv.TMat) {
			return errors.Errorf("model: [%s] uses unknown tmat [%d]", name, def.TMat)
		}
		if len(def.Senones) != len(inv.TMat[def.TMat]) {
			return errors.Errorf("model: [%s] has [%d] senones, tmat [%d] has [%d] states",
				name, len(def.Senones), def.TMat, len(inv.TMat[def.TMat]))
		}
		for _, sen := range def.Senones {
			if sen < 0 || sen >= len(inv.MixW) {
				return errors.Errorf("model: [%s] uses unknown senone [%d]", name, sen)
			}
		}
		if len(def.CI) > 0 {
			ci, ok := inv.Models[def.CI]
			if !ok {
				return errors.Errorf("model: [%s] refers to unknown CI model [%s]", name, def.CI)
			}
			if len(ci.Senones) != len(def.Senones) {
				return errors.Errorf("model: [%s] and its CI model [%s] have different sizes", name, def.CI)
			}
		}
	}
	return nil
}

func (inv *Inventory) checkGauden(cb int, g [][][]float64, what string) error {
	if len(g) != inv.NumStreams {
		return errors.Errorf("model: %s codebook [%d] has [%d] streams", what, cb, len(g))
	}
	for s, comps := range g {
		if len(comps) != inv.NumDensities {
			return errors.Errorf("model: %s codebook [%d] stream [%d] has [%d] densities", what, cb, s, len(comps))
		}
		for k, v := range comps {
			if len(v) != inv.VectorLength[s] {
				return errors.Errorf("model: %s codebook [%d] stream [%d] density [%d] has dim [%d]", what, cb, s, k, len(v))
			}
		}
	}
	return nil
}

// ReadFile reads an inventory in JSON format and validates it.
func ReadFile(fn string) (*Inventory, error) {

	inv := new(Inventory)
	if e := bw.ReadJSONFile(fn, inv); e != nil {
		return nil, errors.Wrapf(e, "model: reading [%s]", fn)
	}
	if e := inv.Validate(); e != nil {
		return nil, errors.Wrapf(e, "model: reading [%s]", fn)
	}
	glog.Infof("read model inventory from %s: %d tmat, %d mixw, %d codebooks, %d models",
		fn, inv.NumTMat(), inv.NumMixW(), inv.NumCodebooks(), len(inv.Models))
	return inv, nil
}

// WriteFile writes the inventory to a file in JSON format.
func (inv *Inventory) WriteFile(fn string) error {

	if e := bw.WriteJSONFile(fn, inv); e != nil {
		return errors.Wrapf(e, "model: writing [%s]", fn)
	}
	glog.Infof("wrote model inventory to file %s", fn)
	return nil
}
