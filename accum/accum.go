// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package accum holds reestimation sums.

A Local accumulator collects the expected counts of a single utterance using
compact local ids. An IndexMap, rebuilt for every utterance from its lattice,
translates local ids into global ids. Global accumulators live for the whole
run and are the only sums that are persisted.

Shapes:

	TMat    [tmat][from][to]
	MixW    [mixw][stream][density]
	Dnom    [codebook][stream][density]
	Mean    [codebook][stream][density][dim]
	Var     [codebook][stream][density][dim]
	FullVar [codebook][stream][density] dim x dim
*/
package accum

import (
	"github.com/akualab/bw"
	"github.com/akualab/bw/model"
)

// Error is an accumulator error.
type Error string

func (err Error) Error() string { return string(err) }

const (
	// ErrMerged is returned when a local accumulator is merged twice.
	ErrMerged = Error("accum: local accumulator already merged")
	// ErrShape is returned when local and global shapes disagree.
	ErrShape = Error("accum: shape mismatch")
)

// Classes selects the parameter classes that are accumulated.
type Classes struct {
	TMat       bool
	MixW       bool
	Mean       bool
	Var        bool
	FullVar    bool
	TwoPassVar bool
}

// NewClasses returns the classes selected in a training config.
func NewClasses(c *bw.Config) Classes {
	return Classes{
		TMat:       c.Reestimate.TMat,
		MixW:       c.Reestimate.MixW,
		Mean:       c.Reestimate.Mean,
		Var:        c.Reestimate.Var,
		FullVar:    c.Reestimate.Var && c.FullVar,
		TwoPassVar: c.Reestimate.Var && c.TwoPassVar,
	}
}

// Gauden returns true if any Gaussian sum is accumulated.
func (c Classes) Gauden() bool { return c.Mean || c.Var }

// DiagVar returns true if diagonal second moments are accumulated.
func (c Classes) DiagVar() bool { return c.Var && !c.FullVar }

// Shape describes the dimensions of an accumulator set.
type Shape struct {
	TMatRows     []int `toml:"tmat_rows"`
	NumMixW      int   `toml:"num_mixw"`
	NumCodebooks int   `toml:"num_codebooks"`
	NumStreams   int   `toml:"num_streams"`
	NumDensities int   `toml:"num_densities"`
	VectorLength []int `toml:"vector_length"`
}

// NewShape returns the accumulator shape for an inventory. A transition
// matrix with n rows has n+1 columns.
func NewShape(inv *model.Inventory) Shape {
	sh := Shape{
		NumMixW:      inv.NumMixW(),
		NumCodebooks: inv.NumCodebooks(),
		NumStreams:   inv.NumStreams,
		NumDensities: inv.NumDensities,
		VectorLength: append([]int(nil), inv.VectorLength...),
	}
	for i := 0; i < inv.NumTMat(); i++ {
		sh.TMatRows = append(sh.TMatRows, inv.NumStates(i))
	}
	return sh
}

// Equal returns true if both shapes are identical.
func (sh Shape) Equal(o Shape) bool {
	if sh.NumMixW != o.NumMixW || sh.NumCodebooks != o.NumCodebooks ||
		sh.NumStreams != o.NumStreams || sh.NumDensities != o.NumDensities ||
		len(sh.TMatRows) != len(o.TMatRows) || len(sh.VectorLength) != len(o.VectorLength) {
		return false
	}
	for i, v := range sh.TMatRows {
		if o.TMatRows[i] != v {
			return false
		}
	}
	for i, v := range sh.VectorLength {
		if o.VectorLength[i] != v {
			return false
		}
	}
	return true
}
