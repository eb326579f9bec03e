// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accum

import (
	"github.com/akualab/bw/floatx"
	"github.com/akualab/bw/model"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Global holds the sums of the run indexed by global ids.
type Global struct {
	Classes Classes
	Shape   Shape

	TMat    [][][]float64
	MixW    [][][]float64
	Dnom    [][][]float64
	Mean    [][][][]float64
	Var     [][][][]float64
	FullVar [][][]*mat.SymDense
}

// NewGlobal allocates zeroed global sums for an inventory.
func NewGlobal(inv *model.Inventory, cl Classes) *Global {
	return NewGlobalShape(NewShape(inv), cl)
}

// NewGlobalShape allocates zeroed global sums with the given shape.
func NewGlobalShape(sh Shape, cl Classes) *Global {

	g := &Global{Classes: cl, Shape: sh}
	if cl.TMat {
		g.TMat = make([][][]float64, len(sh.TMatRows))
		for i, n := range sh.TMatRows {
			g.TMat[i] = floatx.MakeFloat2D(n, n+1)
		}
	}
	if cl.MixW {
		g.MixW = make([][][]float64, sh.NumMixW)
		for i := range g.MixW {
			g.MixW[i] = floatx.MakeFloat2D(sh.NumStreams, sh.NumDensities)
		}
	}
	if !cl.Gauden() {
		return g
	}
	nd := sh.NumDensities
	g.Dnom = make([][][]float64, sh.NumCodebooks)
	if cl.Mean {
		g.Mean = make([][][][]float64, sh.NumCodebooks)
	}
	if cl.DiagVar() {
		g.Var = make([][][][]float64, sh.NumCodebooks)
	}
	if cl.FullVar {
		g.FullVar = make([][][]*mat.SymDense, sh.NumCodebooks)
	}
	for c := 0; c < sh.NumCodebooks; c++ {
		g.Dnom[c] = floatx.MakeFloat2D(sh.NumStreams, nd)
		if cl.Mean {
			g.Mean[c] = make([][][]float64, sh.NumStreams)
		}
		if cl.DiagVar() {
			g.Var[c] = make([][][]float64, sh.NumStreams)
		}
		if cl.FullVar {
			g.FullVar[c] = make([][]*mat.SymDense, sh.NumStreams)
		}
		for s, dim := range sh.VectorLength {
			if cl.Mean {
				g.Mean[c][s] = floatx.MakeFloat2D(nd, dim)
			}
			if cl.DiagVar() {
				g.Var[c][s] = floatx.MakeFloat2D(nd, dim)
			}
			if cl.FullVar {
				g.FullVar[c][s] = make([]*mat.SymDense, nd)
				for k := range g.FullVar[c][s] {
					g.FullVar[c][s][k] = mat.NewSymDense(dim, nil)
				}
			}
		}
	}
	return g
}

// Merge adds the local sums into the global sums and consumes the local
// accumulator. Nothing is modified when an error is returned.
func (g *Global) Merge(l *Local) error {

	if l.merged {
		return ErrMerged
	}
	if l.Classes != g.Classes {
		return errors.Wrapf(ErrShape, "classes differ: local %+v, global %+v", l.Classes, g.Classes)
	}
	if err := g.checkShape(l); err != nil {
		return err
	}

	im := l.Map
	for lt, t := range l.TMat {
		for r, row := range t {
			floats.Add(g.TMat[im.TMat[lt]][r], row)
		}
	}
	for lm, m := range l.MixW {
		for s, ms := range m {
			floats.Add(g.MixW[im.MixW[lm]][s], ms)
		}
	}
	for lc, dn := range l.Dnom {
		gc := im.CB[lc]
		for s := range dn {
			floats.Add(g.Dnom[gc][s], dn[s])
			for k := range dn[s] {
				if l.Mean != nil {
					floats.Add(g.Mean[gc][s][k], l.Mean[lc][s][k])
				}
				if l.Var != nil {
					floats.Add(g.Var[gc][s][k], l.Var[lc][s][k])
				}
				if l.FullVar != nil {
					fv := g.FullVar[gc][s][k]
					fv.AddSym(fv, l.FullVar[lc][s][k])
				}
			}
		}
	}

	l.merged = true
	l.TMat, l.MixW, l.Dnom, l.Mean, l.Var, l.FullVar = nil, nil, nil, nil, nil, nil
	glog.V(3).Infof("merged %d tmat, %d mixw, %d codebooks", len(im.TMat), len(im.MixW), len(im.CB))
	return nil
}

func (g *Global) checkShape(l *Local) error {

	im := l.Map
	for lt, t := range l.TMat {
		gt := im.TMat[lt]
		if gt >= len(g.TMat) {
			return errors.Wrapf(ErrShape, "tmat id [%d] out of range", gt)
		}
		if r, c := floatx.Shape2D(g.TMat[gt]); len(t) != r || (r > 0 && len(t[0]) != c) {
			return errors.Wrapf(ErrShape, "tmat [%d] is %dx%d", gt, r, c)
		}
	}
	for lm, m := range l.MixW {
		gm := im.MixW[lm]
		if gm >= len(g.MixW) {
			return errors.Wrapf(ErrShape, "mixw id [%d] out of range", gm)
		}
		if len(m) != g.Shape.NumStreams || len(m[0]) != g.Shape.NumDensities {
			return errors.Wrapf(ErrShape, "mixw [%d]", gm)
		}
	}
	for lc, dn := range l.Dnom {
		gc := im.CB[lc]
		if gc >= len(g.Dnom) {
			return errors.Wrapf(ErrShape, "codebook id [%d] out of range", gc)
		}
		if len(dn) != g.Shape.NumStreams {
			return errors.Wrapf(ErrShape, "codebook [%d] streams", gc)
		}
		for s := range dn {
			if len(dn[s]) != g.Shape.NumDensities {
				return errors.Wrapf(ErrShape, "codebook [%d] densities", gc)
			}
			if l.Mean != nil && len(l.Mean[lc][s][0]) != g.Shape.VectorLength[s] {
				return errors.Wrapf(ErrShape, "codebook [%d] stream [%d] dim", gc, s)
			}
		}
	}
	return nil
}

// Reset zeroes all sums.
func (g *Global) Reset() {
	for _, t := range g.TMat {
		floatx.Clear2D(t)
	}
	for _, m := range g.MixW {
		floatx.Clear2D(m)
	}
	for c := range g.Dnom {
		floatx.Clear2D(g.Dnom[c])
		if g.Mean != nil {
			floatx.Clear3D(g.Mean[c])
		}
		if g.Var != nil {
			floatx.Clear3D(g.Var[c])
		}
		if g.FullVar != nil {
			for _, fs := range g.FullVar[c] {
				for _, fv := range fs {
					fv.Zero()
				}
			}
		}
	}
}

// Clone returns a deep copy.
func (g *Global) Clone() *Global {
	n := NewGlobalShape(g.Shape, g.Classes)
	for i, t := range g.TMat {
		for r := range t {
			copy(n.TMat[i][r], t[r])
		}
	}
	for i, m := range g.MixW {
		for s := range m {
			copy(n.MixW[i][s], m[s])
		}
	}
	for c := range g.Dnom {
		for s := range g.Dnom[c] {
			copy(n.Dnom[c][s], g.Dnom[c][s])
			for k := range g.Dnom[c][s] {
				if g.Mean != nil {
					copy(n.Mean[c][s][k], g.Mean[c][s][k])
				}
				if g.Var != nil {
					copy(n.Var[c][s][k], g.Var[c][s][k])
				}
				if g.FullVar != nil {
					n.FullVar[c][s][k].CopySym(g.FullVar[c][s][k])
				}
			}
		}
	}
	return n
}

// Occupancy returns the total Gaussian occupancy, or the total mixture
// count when Gaussians are not accumulated.
func (g *Global) Occupancy() float64 {
	var sum float64
	if g.Dnom != nil {
		for c := range g.Dnom {
			for _, v := range g.Dnom[c] {
				sum += floats.Sum(v)
			}
		}
		return sum
	}
	for _, m := range g.MixW {
		for _, v := range m {
			sum += floats.Sum(v)
		}
	}
	return sum
}
