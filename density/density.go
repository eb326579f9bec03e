// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package density evaluates Gaussian mixture output densities.
//
// The trainer only depends on the Evaluator interface. Gauden is a
// diagonal covariance implementation that scores every component of a
// codebook and keeps the best n.
package density

import (
	"math"

	"github.com/pkg/errors"
)

// Density is the log-likelihood of one mixture component.
type Density struct {
	Index int
	Score float64
}

// Evaluator computes component log-likelihoods for a feature frame.
type Evaluator interface {

	// TopN returns, for each feature stream, the n best component
	// log-likelihoods of codebook cb, best first.
	TopN(cb int, frame [][]float64, n int) ([][]Density, error)

	// NumCodebooks is the size of the codebook inventory.
	NumCodebooks() int
}

// MixtureProb combines the densities of a frame with the mixture weights
// mixw[stream][component]. The log-likelihoods in stream s are normalized
// by norm[s] before exponentiation. Returns the product over streams.
func MixtureProb(den [][]Density, norm []float64, mixw [][]float64) float64 {

	p := 1.0
	for s, sd := range den {
		var sum float64
		w := mixw[s]
		for _, d := range sd {
			sum += w[d.Index] * math.Exp(d.Score-norm[s])
		}
		p *= sum
	}
	return p
}

// Posteriors writes into post[s][i] the share of component den[s][i] in
// the stream mixture, scaled by occ. Components with zero mixture weight
// get zero. Returns an error if a stream has no mass.
func Posteriors(den [][]Density, norm []float64, mixw [][]float64, occ float64, post [][]float64) error {

	for s, sd := range den {
		var sum float64
		w := mixw[s]
		ps := post[s]
		for i, d := range sd {
			v := w[d.Index] * math.Exp(d.Score-norm[s])
			ps[i] = v
			sum += v
		}
		if sum <= 0 {
			return errors.Errorf("density: stream [%d] has zero mixture probability", s)
		}
		f := occ / sum
		for i := range sd {
			ps[i] *= f
		}
	}
	return nil
}
