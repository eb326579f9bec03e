// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package floatx provides helpers for float64 slices and a slab allocator
// for data whose lifetime is a single utterance.
package floatx

import (
	"math"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrIndexOutOfRange = Error("floatx: index out of range")
	ErrZeroLength      = Error("floatx: zero length in slice definition")
	ErrLength          = Error("floatx: length mismatch")
)

type ApplyFunc func(n int, v float64) float64

var Log = func(r int, v float64) float64 { return math.Log(v) }

func SetValueFunc(f float64) ApplyFunc {
	return func(r int, v float64) float64 { return f }
}

// Apply function to 1D slice. If out slice is empty, the function is applied in place.
func Apply(fn ApplyFunc, in, out []float64) []float64 {

	if len(out) == 0 {
		out = in
	}
	if len(out) != len(in) {
		panic(ErrLength)
	}
	for i, v := range in {
		out[i] = fn(i, v)
	}
	return out
}

func MakeFloat2D(n1, n2 int) [][]float64 {

	s := make([][]float64, n1)
	for i := 0; i < n1; i++ {
		s[i] = make([]float64, n2)
	}
	return s
}

// Shape2D returns the dimensions of a rectangular 2D slice.
// Panics if rows have different lengths.
func Shape2D(s [][]float64) (n1, n2 int) {

	n1 = len(s)
	if n1 == 0 {
		return
	}
	n2 = len(s[0])
	for _, row := range s {
		if len(row) != n2 {
			panic(ErrLength)
		}
	}
	return
}

// Set all values to zero.
func Clear(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

// Set all values to zero.
func Clear2D(s [][]float64) {
	for _, slice := range s {
		Clear(slice)
	}
}

// Set all values to zero.
func Clear3D(s [][][]float64) {
	for _, slice := range s {
		Clear2D(slice)
	}
}
