// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package fb implements the scaled forward-backward passes over an utterance
lattice.

Forward computes scaled alpha values, one scale factor per frame and
backpointers. Only states that survive the beam are stored, so a Trellis is
sparse. Backward computes beta values with the same scale factors and, at the
same time, accumulates transition, mixture weight and Gaussian counts into a
local accumulator.

With scaled values, for every frame t:

	sum over emitting i of alpha[t][i]*beta[t][i] = alpha[T-1][final]

Backward checks this identity and rejects the utterance when it does not hold.
*/
package fb

import (
	"github.com/akualab/bw"
	"github.com/akualab/bw/accum"
)

// Error is a per-utterance forward-backward error.
type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrNoFrames            = Error("fb: utterance has no frames")
	ErrZeroScale           = Error("fb: all alphas are zero")
	ErrFinalStateUnreached = Error("fb: final state not reached at last frame")
	ErrPosteriorRange      = Error("fb: posterior out of range")
	ErrConsistency         = Error("fb: alpha*beta does not match total probability")
	ErrZeroOutput          = Error("fb: zero output probability")
)

const (
	// Smallest normal float32. Smaller posteriors are not accumulated.
	minPosterior = 1.17549435e-38

	// Relative tolerance of the per-frame alpha*beta identity.
	consistencyTol = 1e-3

	// Posteriors may exceed one by rounding only.
	posteriorTol = 1e-4
)

// Params control pruning and accumulation.
type Params struct {
	ForwardBeam        float64
	BackwardBeam       float64
	PosteriorThreshold float64
	TopN               int
	Classes            accum.Classes
}

// NewParams returns the params for a training config.
func NewParams(c *bw.Config) Params {
	return Params{
		ForwardBeam:        c.ForwardBeam,
		BackwardBeam:       c.BackwardBeam,
		PosteriorThreshold: c.PosteriorThreshold,
		TopN:               c.TopN,
		Classes:            accum.NewClasses(c),
	}
}
