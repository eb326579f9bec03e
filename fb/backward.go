// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fb

import (
	"math"

	"github.com/akualab/bw/accum"
	"github.com/akualab/bw/density"
	"github.com/akualab/bw/lattice"
	"github.com/akualab/bw/model"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Backward computes scaled beta values over the trellis of a successful
// forward pass and accumulates expected counts into local. An error
// means the utterance must be discarded together with local.
func Backward(tr *Trellis, lat *lattice.Lattice, feats [][][]float64, inv *model.Inventory, sc *Scorer, local *accum.Local, p Params) error {

	nf := tr.NumFrames()
	if nf == 0 {
		return ErrNoFrames
	}
	final := lat.Final()
	aF := tr.AlphaFinal
	thresh := p.BackwardBeam * aF
	acc := newAccumulator(lat, feats, inv, sc, local)
	reestTrans := local.Classes.TMat
	ids := local.Map.States

	last := &tr.Frames[nf-1]
	kf := last.Slot(final)
	if kf < 0 {
		return ErrFinalStateUnreached
	}
	last.Beta[kf] = 1

	for t := nf - 1; t >= 0; t-- {
		fr := &tr.Frames[t]

		// Arcs from frame t into emitting states of frame t+1.
		if t < nf-1 {
			nx := &tr.Frames[t+1]
			for k, j := range nx.States {
				st := &lat.States[j]
				if !st.Emitting() || nx.Beta[k] == 0 {
					continue
				}
				den, err := sc.Densities(t+1, st.CB)
				if err != nil {
					return err
				}
				run := density.MixtureProb(den, nx.Norm, inv.MixW[st.MixW]) * nx.Beta[k] * nx.Scale
				var occ float64
				for _, arc := range st.Prev {
					si := fr.Slot(arc.From)
					if si < 0 {
						continue
					}
					fr.Beta[si] += arc.Prob * run
					post := fr.Alpha[si] * arc.Prob * run / aF
					if err := checkPosterior(post, t, arc.From, j); err != nil {
						return err
					}
					if post > minPosterior && post > p.PosteriorThreshold {
						if reestTrans && arc.Row >= 0 {
							local.AddTrans(ids[arc.From].TMat, arc.Row, arc.Col, post)
						}
						occ += post
					}
				}
				if occ > 0 {
					if err := acc.state(t+1, j, den, nx.Norm, occ); err != nil {
						return err
					}
				}
			}
		}

		// Arcs inside frame t into non-emitting states, highest index first.
		for k := len(fr.States) - 1; k >= 0; k-- {
			j := fr.States[k]
			st := &lat.States[j]
			if st.Emitting() {
				continue
			}
			if fr.Alpha[k]*fr.Beta[k] < thresh {
				fr.Beta[k] = 0
				continue
			}
			for _, arc := range st.Prev {
				si := fr.Slot(arc.From)
				if si < 0 {
					continue
				}
				fr.Beta[si] += arc.Prob * fr.Beta[k]
				post := fr.Alpha[si] * arc.Prob * fr.Beta[k] / aF
				if err := checkPosterior(post, t, arc.From, j); err != nil {
					return err
				}
				if reestTrans && arc.Row >= 0 && post > minPosterior && post > p.PosteriorThreshold {
					local.AddTrans(ids[arc.From].TMat, arc.Row, arc.Col, post)
				}
			}
		}

		var sum float64
		for k, j := range fr.States {
			if lat.States[j].Emitting() {
				sum += fr.Alpha[k] * fr.Beta[k]
			}
		}
		if math.Abs(sum-aF) > consistencyTol*aF {
			return errors.Wrapf(ErrConsistency, "frame [%d]: sum=%g alpha_final=%g", t, sum, aF)
		}
		for k, j := range fr.States {
			if lat.States[j].Emitting() && fr.Alpha[k]*fr.Beta[k] < thresh {
				fr.Beta[k] = 0
			}
		}
		if glog.V(4) {
			glog.Infof("backward t=%d sum=%g", t, sum)
		}
	}

	// The initial state at frame 0 has no incoming arc.
	f0 := &tr.Frames[0]
	k0 := f0.Slot(0)
	occ := f0.Alpha[k0] * f0.Beta[k0] / aF
	if math.Abs(occ-1) > consistencyTol {
		return errors.Wrapf(ErrConsistency, "initial state occupancy %g", occ)
	}
	den, err := sc.Densities(0, lat.States[0].CB)
	if err != nil {
		return err
	}
	return acc.state(0, 0, den, f0.Norm, occ)
}

func checkPosterior(post float64, t, i, j int) error {
	if post < 0 || post > 1+posteriorTol || math.IsNaN(post) {
		return errors.Wrapf(ErrPosteriorRange, "frame [%d] arc [%d]->[%d] posterior %g", t, i, j, post)
	}
	return nil
}

// accumulator adds state occupancies to the mixture and Gaussian sums.
type accumulator struct {
	lat   *lattice.Lattice
	feats [][][]float64
	inv   *model.Inventory
	sc    *Scorer
	local *accum.Local
	post  [][]float64
	norm  []float64
}

func newAccumulator(lat *lattice.Lattice, feats [][][]float64, inv *model.Inventory, sc *Scorer, local *accum.Local) *accumulator {
	return &accumulator{
		lat:   lat,
		feats: feats,
		inv:   inv,
		sc:    sc,
		local: local,
		post:  make([][]float64, inv.NumStreams),
		norm:  make([]float64, inv.NumStreams),
	}
}

func (a *accumulator) buffer(den [][]density.Density) [][]float64 {
	for s, sd := range den {
		if cap(a.post[s]) < len(sd) {
			a.post[s] = make([]float64, len(sd))
		}
		a.post[s] = a.post[s][:len(sd)]
	}
	return a.post
}

// state accumulates the occupancy occ of emitting state j at frame t.
func (a *accumulator) state(t, j int, den [][]density.Density, norm []float64, occ float64) error {

	cl := a.local.Classes
	if !cl.MixW && !cl.Gauden() {
		return nil
	}
	st := &a.lat.States[j]
	ids := a.local.Map.States[j]

	post := a.buffer(den)
	if err := density.Posteriors(den, norm, a.inv.MixW[st.MixW], occ, post); err != nil {
		return errors.Wrapf(ErrZeroOutput, "frame [%d] state [%d]: %v", t, j, err)
	}
	if cl.MixW {
		a.local.AddMixW(ids.MixW, den, post)
	}
	if cl.Gauden() {
		for s, sd := range den {
			x := a.feats[t][s]
			for i, d := range sd {
				w := post[s][i]
				if w <= 0 {
					continue
				}
				var mu []float64
				if cl.TwoPassVar {
					mu = a.inv.Mean[st.CB][s][d.Index]
				}
				a.local.AddGaussian(ids.CB, s, d.Index, w, x, mu)
			}
		}
	}

	if !cl.MixW || st.CIMixW == st.MixW {
		return nil
	}

	// CI twin. With a single codebook the CD densities are reused,
	// otherwise the CI codebook is scored on its own.
	ciDen, ciNorm := den, norm
	if a.inv.NumCodebooks() > 1 {
		var err error
		if ciDen, err = a.sc.Densities(t, st.CICB); err != nil {
			return err
		}
		ciNorm = Norm(ciDen, a.norm)
	}
	post = a.buffer(ciDen)
	if err := density.Posteriors(ciDen, ciNorm, a.inv.MixW[st.CIMixW], occ, post); err != nil {
		return errors.Wrapf(ErrZeroOutput, "frame [%d] state [%d] CI: %v", t, j, err)
	}
	a.local.AddMixW(ids.CIMixW, ciDen, post)
	return nil
}
