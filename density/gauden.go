// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package density

import (
	"math"

	"github.com/akualab/bw/floatx"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// SmallVariance is the variance floor applied when building a Gauden.
	SmallVariance = 0.0001
)

// Gauden is a set of diagonal Gaussian codebooks.
// Shapes: mean and variance are [codebook][stream][component][dim].
type Gauden struct {
	mean   [][][][]float64
	invVar [][][][]float64
	// -(N/2)log(2PI) - sum(log sigma_i) per component.
	logNorm [][][]float64
	scratch [][]float64
	inds    []int
}

// NewGauden precomputes inverse variances and normalization constants.
func NewGauden(mean, variance [][][][]float64) (*Gauden, error) {

	if len(mean) != len(variance) {
		return nil, errors.Errorf("density: mean has [%d] codebooks, variance has [%d]", len(mean), len(variance))
	}
	g := &Gauden{
		mean:    mean,
		invVar:  make([][][][]float64, len(mean)),
		logNorm: make([][][]float64, len(mean)),
	}
	maxComp := 0
	for cb := range mean {
		if len(mean[cb]) != len(variance[cb]) {
			return nil, errors.Errorf("density: codebook [%d] stream count mismatch", cb)
		}
		g.invVar[cb] = make([][][]float64, len(mean[cb]))
		g.logNorm[cb] = make([][]float64, len(mean[cb]))
		for s := range mean[cb] {
			nc := len(mean[cb][s])
			if nc != len(variance[cb][s]) {
				return nil, errors.Errorf("density: codebook [%d] stream [%d] component count mismatch", cb, s)
			}
			if nc > maxComp {
				maxComp = nc
			}
			g.invVar[cb][s] = make([][]float64, nc)
			g.logNorm[cb][s] = make([]float64, nc)
			for k := 0; k < nc; k++ {
				m, v := mean[cb][s][k], variance[cb][s][k]
				if !floats.EqualLengths(m, v) {
					return nil, errors.Errorf("density: codebook [%d] stream [%d] component [%d] dim mismatch", cb, s, k)
				}
				iv := make([]float64, len(v))
				logv := make([]float64, len(v))
				for d, x := range v {
					if x < SmallVariance {
						glog.V(4).Infof("flooring variance cb=%d s=%d k=%d d=%d: %g", cb, s, k, d, x)
						x = SmallVariance
					}
					iv[d] = 1 / x
					logv[d] = x
				}
				floatx.Apply(floatx.Log, logv, nil)
				g.invVar[cb][s][k] = iv
				g.logNorm[cb][s][k] = -float64(len(v))*math.Log(2.0*math.Pi)/2.0 - floats.Sum(logv)/2.0
			}
		}
	}
	g.scratch = make([][]float64, 1)
	g.scratch[0] = make([]float64, maxComp)
	g.inds = make([]int, maxComp)
	return g, nil
}

// NumCodebooks implements Evaluator.
func (g *Gauden) NumCodebooks() int { return len(g.mean) }

// LogProb returns the log-likelihood of x under one component.
func (g *Gauden) LogProb(cb, s, k int, x []float64) float64 {

	m, iv := g.mean[cb][s][k], g.invVar[cb][s][k]
	var v float64
	for d, xd := range x {
		diff := xd - m[d]
		v += diff * diff * iv[d]
	}
	return g.logNorm[cb][s][k] - v/2.0
}

// TopN implements Evaluator. Not safe to use with multiple goroutines.
func (g *Gauden) TopN(cb int, frame [][]float64, n int) ([][]Density, error) {

	if cb < 0 || cb >= len(g.mean) {
		return nil, errors.Errorf("density: codebook [%d] out of range", cb)
	}
	if len(frame) != len(g.mean[cb]) {
		return nil, errors.Errorf("density: frame has [%d] streams, codebook [%d] has [%d]", len(frame), cb, len(g.mean[cb]))
	}
	out := make([][]Density, len(frame))
	for s, x := range frame {
		nc := len(g.mean[cb][s])
		if len(x) != len(g.mean[cb][s][0]) {
			return nil, errors.Errorf("density: stream [%d] has dim [%d], expected [%d]", s, len(x), len(g.mean[cb][s][0]))
		}
		scores := g.scratch[0][:nc]
		inds := g.inds[:nc]
		for k := 0; k < nc; k++ {
			scores[k] = g.LogProb(cb, s, k, x)
		}
		// Argsort sorts ascending, the best components end up last.
		floats.Argsort(scores, inds)
		m := n
		if m <= 0 || m > nc {
			m = nc
		}
		sd := make([]Density, m)
		for i := 0; i < m; i++ {
			sd[i] = Density{Index: inds[nc-1-i], Score: scores[nc-1-i]}
		}
		out[s] = sd
	}
	return out, nil
}
