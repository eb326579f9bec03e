// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"sort"

	"github.com/akualab/bw/floatx"
)

// FlatSpec describes an inventory with flat initial parameters.
type FlatSpec struct {
	// Context independent model names.
	Models []string
	// Context dependent model name to CI model name.
	CD map[string]string

	NumStates    int
	NumStreams   int
	VectorLength []int
	NumDensities int

	// Use a single codebook shared by all senones.
	SemiContinuous bool

	// Self loop probability. Defaults to 0.6.
	SelfLoop float64
}

// Flat creates an inventory with equal mixture weights, left-to-right
// transitions and unit variance Gaussians whose means are spread along
// every dimension. Ids are assigned in sorted name order, CI models first.
func Flat(spec FlatSpec) *Inventory {

	if spec.SelfLoop == 0 {
		spec.SelfLoop = 0.6
	}
	inv := &Inventory{
		NumStreams:   spec.NumStreams,
		VectorLength: append([]int(nil), spec.VectorLength...),
		NumDensities: spec.NumDensities,
		Models:       make(map[string]*Def),
	}

	ci := append([]string(nil), spec.Models...)
	sort.Strings(ci)
	cd := make([]string, 0, len(spec.CD))
	for name := range spec.CD {
		cd = append(cd, name)
	}
	sort.Strings(cd)

	if spec.SemiContinuous {
		inv.Mean = append(inv.Mean, inv.flatCodebook(0))
		inv.Var = append(inv.Var, inv.unitCodebook())
	}
	add := func(name, ciName string) {
		def := &Def{TMat: len(inv.TMat), CI: ciName}
		inv.TMat = append(inv.TMat, leftToRight(spec.NumStates, spec.SelfLoop))
		for i := 0; i < spec.NumStates; i++ {
			def.Senones = append(def.Senones, len(inv.MixW))
			inv.MixW = append(inv.MixW, inv.uniformMixW())
			cb := 0
			if !spec.SemiContinuous {
				cb = len(inv.Mean)
				inv.Mean = append(inv.Mean, inv.flatCodebook(cb))
				inv.Var = append(inv.Var, inv.unitCodebook())
			}
			inv.MixWCodebook = append(inv.MixWCodebook, cb)
		}
		inv.Models[name] = def
	}
	for _, name := range ci {
		add(name, "")
	}
	for _, name := range cd {
		add(name, spec.CD[name])
	}
	return inv
}

func leftToRight(n int, self float64) [][]float64 {
	tm := floatx.MakeFloat2D(n, n+1)
	for i := range tm {
		tm[i][i] = self
		tm[i][i+1] = 1 - self
	}
	return tm
}

func (inv *Inventory) uniformMixW() [][]float64 {
	mw := floatx.MakeFloat2D(inv.NumStreams, inv.NumDensities)
	for s := range mw {
		floatx.Apply(floatx.SetValueFunc(1/float64(inv.NumDensities)), mw[s], nil)
	}
	return mw
}

func (inv *Inventory) flatCodebook(cb int) [][][]float64 {
	g := make([][][]float64, inv.NumStreams)
	for s := range g {
		g[s] = make([][]float64, inv.NumDensities)
		for k := range g[s] {
			g[s][k] = make([]float64, inv.VectorLength[s])
			floatx.Apply(floatx.SetValueFunc(float64(k-inv.NumDensities/2)+0.1*float64(cb)), g[s][k], nil)
		}
	}
	return g
}

func (inv *Inventory) unitCodebook() [][][]float64 {
	g := make([][][]float64, inv.NumStreams)
	for s := range g {
		g[s] = make([][]float64, inv.NumDensities)
		for k := range g[s] {
			g[s][k] = make([]float64, inv.VectorLength[s])
			floatx.Apply(floatx.SetValueFunc(1), g[s][k], nil)
		}
	}
	return g
}
