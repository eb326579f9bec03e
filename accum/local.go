// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accum

import (
	"github.com/akualab/bw/density"
	"github.com/akualab/bw/floatx"
	"github.com/akualab/bw/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Local holds the sums of one utterance indexed by local ids.
type Local struct {
	Classes Classes
	Map     *IndexMap

	TMat    [][][]float64
	MixW    [][][]float64
	Dnom    [][][]float64
	Mean    [][][][]float64
	Var     [][][][]float64
	FullVar [][][]*mat.SymDense

	scratch []float64
	merged  bool
}

// NewLocal allocates zeroed local sums for the ids in the map. Memory is
// taken from the arena when not nil and is released by resetting it.
func NewLocal(im *IndexMap, inv *model.Inventory, cl Classes, arena *floatx.Arena) *Local {

	alloc := func(n int) []float64 {
		if arena == nil {
			return make([]float64, n)
		}
		return arena.Floats(n)
	}
	alloc2 := func(n1, n2 int) [][]float64 {
		if arena == nil {
			return floatx.MakeFloat2D(n1, n2)
		}
		return arena.Float2D(n1, n2)
	}

	l := &Local{Classes: cl, Map: im}
	if cl.TMat {
		l.TMat = make([][][]float64, len(im.TMat))
		for lt, gt := range im.TMat {
			n := inv.NumStates(gt)
			l.TMat[lt] = alloc2(n, n+1)
		}
	}
	if cl.MixW {
		l.MixW = make([][][]float64, len(im.MixW))
		for lm := range im.MixW {
			l.MixW[lm] = alloc2(inv.NumStreams, inv.NumDensities)
		}
	}
	if !cl.Gauden() {
		return l
	}

	maxDim := 0
	for _, d := range inv.VectorLength {
		if d > maxDim {
			maxDim = d
		}
	}
	l.scratch = make([]float64, maxDim)

	nd := inv.NumDensities
	l.Dnom = make([][][]float64, len(im.CB))
	if cl.Mean {
		l.Mean = make([][][][]float64, len(im.CB))
	}
	if cl.DiagVar() {
		l.Var = make([][][][]float64, len(im.CB))
	}
	if cl.FullVar {
		l.FullVar = make([][][]*mat.SymDense, len(im.CB))
	}
	for lc := range im.CB {
		l.Dnom[lc] = alloc2(inv.NumStreams, nd)
		if cl.Mean {
			l.Mean[lc] = make([][][]float64, inv.NumStreams)
		}
		if cl.DiagVar() {
			l.Var[lc] = make([][][]float64, inv.NumStreams)
		}
		if cl.FullVar {
			l.FullVar[lc] = make([][]*mat.SymDense, inv.NumStreams)
		}
		for s, dim := range inv.VectorLength {
			if cl.Mean {
				l.Mean[lc][s] = alloc2(nd, dim)
			}
			if cl.DiagVar() {
				l.Var[lc][s] = alloc2(nd, dim)
			}
			if cl.FullVar {
				l.FullVar[lc][s] = make([]*mat.SymDense, nd)
				for k := range l.FullVar[lc][s] {
					l.FullVar[lc][s][k] = mat.NewSymDense(dim, alloc(dim*dim))
				}
			}
		}
	}
	return l
}

// Merged returns true after the sums were added to a global accumulator.
func (l *Local) Merged() bool { return l.merged }

// AddTrans adds a transition count.
func (l *Local) AddTrans(tmat, row, col int, p float64) {
	l.TMat[tmat][row][col] += p
}

// AddMixW adds component posteriors post[s][i] for components den[s][i].
func (l *Local) AddMixW(mixw int, den [][]density.Density, post [][]float64) {
	mw := l.MixW[mixw]
	for s, sd := range den {
		for i, d := range sd {
			mw[s][d.Index] += post[s][i]
		}
	}
}

// AddGaussian adds an observation with weight w to a component. When mu is
// not nil, second moments are taken around mu.
func (l *Local) AddGaussian(cb, s, k int, w float64, x, mu []float64) {

	l.Dnom[cb][s][k] += w
	if l.Mean != nil {
		floats.AddScaled(l.Mean[cb][s][k], w, x)
	}
	if !l.Classes.Var {
		return
	}
	v := x
	if mu != nil {
		v = l.scratch[:len(x)]
		floats.SubTo(v, x, mu)
	}
	if l.FullVar != nil {
		fv := l.FullVar[cb][s][k]
		fv.SymRankOne(fv, w, mat.NewVecDense(len(v), v))
		return
	}
	dst := l.Var[cb][s][k]
	for d, xd := range v {
		dst[d] += w * xd * xd
	}
}
