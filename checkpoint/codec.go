// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"encoding/gob"
	"io"

	"github.com/akualab/bw/accum"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accumulator file names.
const (
	TMatFile   = "tmat_counts"
	MixWFile   = "mixw_counts"
	GaudenFile = "gauden_counts"
	RecordFile = "ckpt.toml"
)

const magic = "bw-accum-1"

type header struct {
	Magic   string
	Class   string
	Classes accum.Classes
	Shape   accum.Shape
}

type gaudenSums struct {
	Dnom    [][][]float64
	Mean    [][][][]float64
	Var     [][][][]float64
	FullVar [][][][]byte
}

// Encode writes the sums of one file class.
func Encode(w io.Writer, class string, g *accum.Global) error {

	enc := gob.NewEncoder(w)
	if err := enc.Encode(header{Magic: magic, Class: class, Classes: g.Classes, Shape: g.Shape}); err != nil {
		return err
	}
	switch class {
	case TMatFile:
		return enc.Encode(g.TMat)
	case MixWFile:
		return enc.Encode(g.MixW)
	case GaudenFile:
		gs := gaudenSums{Dnom: g.Dnom, Mean: g.Mean, Var: g.Var}
		if g.FullVar != nil {
			var err error
			if gs.FullVar, err = marshalSym(g.FullVar); err != nil {
				return err
			}
		}
		return enc.Encode(gs)
	}
	return errors.Errorf("checkpoint: unknown class %s", class)
}

// Decode reads the sums of one file class into g. The file must have been
// written with the same classes and shape.
func Decode(r io.Reader, class string, g *accum.Global) error {

	dec := gob.NewDecoder(r)
	var h header
	if err := dec.Decode(&h); err != nil {
		return errors.Wrapf(ErrFormat, "%s header: %v", class, err)
	}
	switch {
	case h.Magic != magic:
		return errors.Wrapf(ErrFormat, "%s: bad magic %q", class, h.Magic)
	case h.Class != class:
		return errors.Wrapf(ErrFormat, "expected %s, found %s", class, h.Class)
	case h.Classes != g.Classes:
		return errors.Wrapf(ErrFormat, "%s: classes %+v, expected %+v", class, h.Classes, g.Classes)
	case !h.Shape.Equal(g.Shape):
		return errors.Wrapf(accum.ErrShape, "%s: file shape differs from inventory", class)
	}

	switch class {
	case TMatFile:
		var v [][][]float64
		if err := dec.Decode(&v); err != nil {
			return errors.Wrapf(ErrFormat, "%s: %v", class, err)
		}
		g.TMat = v
	case MixWFile:
		var v [][][]float64
		if err := dec.Decode(&v); err != nil {
			return errors.Wrapf(ErrFormat, "%s: %v", class, err)
		}
		g.MixW = v
	case GaudenFile:
		var gs gaudenSums
		if err := dec.Decode(&gs); err != nil {
			return errors.Wrapf(ErrFormat, "%s: %v", class, err)
		}
		g.Dnom, g.Mean, g.Var = gs.Dnom, gs.Mean, gs.Var
		if gs.FullVar != nil {
			fv, err := unmarshalSym(gs.FullVar)
			if err != nil {
				return errors.Wrapf(ErrFormat, "%s: %v", class, err)
			}
			g.FullVar = fv
		}
	default:
		return errors.Errorf("checkpoint: unknown class %s", class)
	}
	return nil
}

func marshalSym(fv [][][]*mat.SymDense) ([][][][]byte, error) {
	out := make([][][][]byte, len(fv))
	for c := range fv {
		out[c] = make([][][]byte, len(fv[c]))
		for s := range fv[c] {
			out[c][s] = make([][]byte, len(fv[c][s]))
			for k, m := range fv[c][s] {
				// SymDense has no binary form; store the dense copy.
				b, err := mat.DenseCopyOf(m).MarshalBinary()
				if err != nil {
					return nil, err
				}
				out[c][s][k] = b
			}
		}
	}
	return out, nil
}

func unmarshalSym(in [][][][]byte) ([][][]*mat.SymDense, error) {
	out := make([][][]*mat.SymDense, len(in))
	for c := range in {
		out[c] = make([][]*mat.SymDense, len(in[c]))
		for s := range in[c] {
			out[c][s] = make([]*mat.SymDense, len(in[c][s]))
			for k, b := range in[c][s] {
				var d mat.Dense
				if err := d.UnmarshalBinary(b); err != nil {
					return nil, err
				}
				n, cols := d.Dims()
				if n != cols {
					return nil, errors.Errorf("full covariance is %dx%d", n, cols)
				}
				m := mat.NewSymDense(n, nil)
				for i := 0; i < n; i++ {
					for j := i; j < n; j++ {
						m.SetSym(i, j, d.At(i, j))
					}
				}
				out[c][s][k] = m
			}
		}
	}
	return out, nil
}
