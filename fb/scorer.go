// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fb

import (
	"math"

	"github.com/akualab/bw/cache"
	"github.com/akualab/bw/density"
	"github.com/pkg/errors"
)

// Scorer returns the top-N densities of a codebook for a frame. Results
// of the forward pass are kept in a cache keyed by (frame, codebook) so the
// backward pass does not evaluate densities again.
type Scorer struct {
	eval  density.Evaluator
	cache *cache.Cache
	topN  int
	ncb   uint64
	feats [][][]float64

	Hits, Misses int
}

// NewScorer creates a scorer. The cache may be nil.
func NewScorer(eval density.Evaluator, c *cache.Cache, topN int) *Scorer {
	return &Scorer{
		eval:  eval,
		cache: c,
		topN:  topN,
		ncb:   uint64(eval.NumCodebooks()),
	}
}

// Reset prepares the scorer for a new utterance.
func (sc *Scorer) Reset(feats [][][]float64) {
	sc.feats = feats
	sc.Hits, sc.Misses = 0, 0
	if sc.cache != nil {
		sc.cache.Clear()
	}
}

// Densities returns the densities of codebook cb at frame t, best first.
func (sc *Scorer) Densities(t, cb int) ([][]density.Density, error) {

	key := uint64(t)*sc.ncb + uint64(cb)
	if sc.cache != nil {
		if v, ok := sc.cache.Get(key); ok {
			sc.Hits++
			return decodeDensities(v), nil
		}
	}
	sc.Misses++
	if t < 0 || t >= len(sc.feats) {
		return nil, errors.Errorf("fb: frame [%d] out of range", t)
	}
	den, err := sc.eval.TopN(cb, sc.feats[t], sc.topN)
	if err != nil {
		return nil, errors.Wrapf(err, "fb: scoring frame [%d] codebook [%d]", t, cb)
	}
	if sc.cache != nil {
		sc.cache.Set(key, encodeDensities(den))
	}
	return den, nil
}

// Norm returns the best score per stream.
func Norm(den [][]density.Density, norm []float64) []float64 {
	if norm == nil {
		norm = make([]float64, len(den))
	}
	for s, sd := range den {
		norm[s] = math.Inf(-1)
		for _, d := range sd {
			if d.Score > norm[s] {
				norm[s] = d.Score
			}
		}
	}
	return norm
}

// Layout per stream: n, then n (index, score) pairs.
func encodeDensities(den [][]density.Density) []float64 {
	size := 0
	for _, sd := range den {
		size += 1 + 2*len(sd)
	}
	v := make([]float64, 0, size)
	for _, sd := range den {
		v = append(v, float64(len(sd)))
		for _, d := range sd {
			v = append(v, float64(d.Index), d.Score)
		}
	}
	return v
}

func decodeDensities(v []float64) [][]density.Density {
	var den [][]density.Density
	for p := 0; p < len(v); {
		n := int(v[p])
		p++
		sd := make([]density.Density, n)
		for i := range sd {
			sd[i] = density.Density{Index: int(v[p]), Score: v[p+1]}
			p += 2
		}
		den = append(den, sd)
	}
	return den
}
