// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fb

import (
	"math"
	"sort"

	"github.com/akualab/bw/density"
	"github.com/akualab/bw/floatx"
	"github.com/akualab/bw/lattice"
	"github.com/akualab/bw/model"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Forward computes the scaled forward probabilities of the features given
// the lattice. Frame memory is taken from the arena.
func Forward(lat *lattice.Lattice, feats [][][]float64, inv *model.Inventory, sc *Scorer, p Params, arena *floatx.Arena) (*Trellis, error) {

	nf := len(feats)
	if nf == 0 {
		return nil, ErrNoFrames
	}
	ns := lat.Len()
	final := lat.Final()

	// Values indexed by state id, valid for the current frame only.
	alpha := arena.Floats(ns)
	bpf := arena.Ints(ns)
	bps := arena.Ints(ns)

	// A state is a candidate (or active) at frame t when its stamp is t+1.
	cand := arena.Ints(ns)
	live := arena.Ints(ns)

	tr := &Trellis{Frames: make([]Frame, nf)}
	var emit, keep []int
	var dens [][][]density.Density
	stamp := 0

	for t := 0; t < nf; t++ {
		stamp = t + 1

		// Emitting candidates.
		emit = emit[:0]
		if t == 0 {
			emit = append(emit, 0)
		} else {
			for _, i := range tr.Frames[t-1].States {
				for _, j := range lat.States[i].Next() {
					if lat.States[j].Emitting() && cand[j] != stamp {
						cand[j] = stamp
						emit = append(emit, j)
					}
				}
			}
			sort.Ints(emit)
		}

		// Density normalization.
		norm := arena.Floats(inv.NumStreams)
		for s := range norm {
			norm[s] = math.Inf(-1)
		}
		dens = dens[:0]
		for _, j := range emit {
			den, err := sc.Densities(t, lat.States[j].CB)
			if err != nil {
				return nil, err
			}
			for s, sd := range den {
				for _, d := range sd {
					if d.Score > norm[s] {
						norm[s] = d.Score
					}
				}
			}
			dens = append(dens, den)
		}
		for s, v := range norm {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, errors.Wrapf(ErrZeroScale, "frame [%d] stream [%d] has no finite density", t, s)
			}
		}

		// Emitting alphas.
		var sum, amax float64
		for k, j := range emit {
			st := &lat.States[j]
			a := 1.0
			bpf[j], bps[j] = -1, -1
			if t > 0 {
				a = 0
				best := -1.0
				pf := &tr.Frames[t-1]
				for _, arc := range st.Prev {
					si := pf.Slot(arc.From)
					if si < 0 {
						continue
					}
					v := pf.Alpha[si] * arc.Prob
					a += v
					if v > best {
						best = v
						bpf[j], bps[j] = t-1, arc.From
					}
				}
			}
			a *= density.MixtureProb(dens[k], norm, inv.MixW[st.MixW])
			alpha[j] = a
			sum += a
			if a > amax {
				amax = a
			}
		}
		if !(sum > 0) || math.IsInf(sum, 0) {
			return nil, errors.Wrapf(ErrZeroScale, "frame [%d]", t)
		}
		scale := 1 / sum
		thresh := p.ForwardBeam * amax * scale

		keep = keep[:0]
		lo := ns
		for _, j := range emit {
			alpha[j] *= scale
			if alpha[j] <= thresh {
				continue
			}
			live[j] = stamp
			keep = append(keep, j)
			for _, k := range lat.States[j].Next() {
				if !lat.States[k].Emitting() && cand[k] != stamp {
					cand[k] = stamp
					if k < lo {
						lo = k
					}
				}
			}
		}

		// Non-emitting states in increasing order. Arcs into them come
		// from lower indices so all predecessors are done.
		for j := lo; j < ns; j++ {
			st := &lat.States[j]
			if st.Emitting() || cand[j] != stamp {
				continue
			}
			if j == final && t != nf-1 {
				continue
			}
			var a float64
			best := -1.0
			for _, arc := range st.Prev {
				if live[arc.From] != stamp {
					continue
				}
				v := alpha[arc.From] * arc.Prob
				a += v
				if v > best {
					best = v
					bpf[j], bps[j] = t, arc.From
				}
			}
			if j == final {
				if !(a > 0) {
					continue
				}
			} else if a <= thresh {
				continue
			}
			alpha[j] = a
			live[j] = stamp
			keep = append(keep, j)
			for _, k := range st.Next() {
				if !lat.States[k].Emitting() {
					cand[k] = stamp
				}
			}
		}

		sort.Ints(keep)
		fr := &tr.Frames[t]
		n := len(keep)
		fr.States = arena.Ints(n)
		fr.Alpha = arena.Floats(n)
		fr.Beta = arena.Floats(n)
		fr.BPFrame = arena.Ints(n)
		fr.BPState = arena.Ints(n)
		fr.Norm = norm
		fr.Scale = scale
		for k, j := range keep {
			fr.States[k] = j
			fr.Alpha[k] = alpha[j]
			fr.BPFrame[k] = bpf[j]
			fr.BPState[k] = bps[j]
		}
		if glog.V(4) {
			glog.Infof("forward t=%d active=%d scale=%g", t, n, scale)
		}
	}

	last := &tr.Frames[nf-1]
	k := last.Slot(final)
	if k < 0 {
		return nil, ErrFinalStateUnreached
	}
	tr.AlphaFinal = last.Alpha[k]
	return tr, nil
}
