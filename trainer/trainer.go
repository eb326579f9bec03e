// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package trainer runs Baum-Welch accumulation over a corpus.

Utterances are processed one at a time. For each one the trainer builds the
lattice, runs the forward and backward passes into a local accumulator and
merges it into the global accumulator. A failed utterance is logged and
skipped; its local sums are dropped so the global sums never see them.
Global sums and the corpus position are checkpointed periodically so an
interrupted run can resume.
*/
package trainer

import (
	"io"
	"time"

	"github.com/akualab/bw"
	"github.com/akualab/bw/accum"
	"github.com/akualab/bw/cache"
	"github.com/akualab/bw/checkpoint"
	"github.com/akualab/bw/corpus"
	"github.com/akualab/bw/density"
	"github.com/akualab/bw/fb"
	"github.com/akualab/bw/floatx"
	"github.com/akualab/bw/lattice"
	"github.com/akualab/bw/model"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// DefaultCacheSize is the size in bytes of the density score cache.
const DefaultCacheSize = 64 << 20

// Error is a per-utterance error raised by the trainer.
type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrTooShort = Error("trainer: utterance too short")
	ErrTooLong  = Error("trainer: utterance too long")
	ErrLattice  = Error("trainer: cannot build lattice")
	ErrFeatures = Error("trainer: bad feature shape")
)

// IsRecoverable returns true if the error only affects one utterance.
func IsRecoverable(err error) bool {
	switch errors.Cause(err).(type) {
	case Error, fb.Error:
		return true
	}
	return false
}

// Stats describe the processing of an utterance.
type Stats struct {
	ID       string
	Offset   int
	Frames   int
	Active   int
	LogLik   float64
	Duration time.Duration
	Err      error
}

// Skipped returns true if the utterance was not accumulated.
func (s Stats) Skipped() bool { return s.Err != nil }

// Trainer accumulates reestimation sums.
type Trainer struct {
	Config *bw.Config
	Global *accum.Global

	// OnUtterance, when set, is called after every utterance.
	OnUtterance func(Stats)

	inv     *model.Inventory
	builder lattice.Builder
	scorer  *fb.Scorer
	params  fb.Params
	store   *checkpoint.Store
	arena   *floatx.Arena
	totals  checkpoint.Record
}

// New creates a trainer. The store may be nil, in which case no
// checkpoints are written.
func New(cfg *bw.Config, inv *model.Inventory, eval density.Evaluator, builder lattice.Builder, store *checkpoint.Store) (*Trainer, error) {

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if eval.NumCodebooks() != inv.NumCodebooks() {
		return nil, errors.Errorf("trainer: evaluator has %d codebooks, inventory has %d",
			eval.NumCodebooks(), inv.NumCodebooks())
	}
	params := fb.NewParams(cfg)
	return &Trainer{
		Config:  cfg,
		Global:  accum.NewGlobal(inv, params.Classes),
		inv:     inv,
		builder: builder,
		scorer:  fb.NewScorer(eval, cache.NewCache(DefaultCacheSize), cfg.TopN),
		params:  params,
		store:   store,
		arena:   floatx.NewArena(0),
	}, nil
}

// Totals returns the running totals of the run.
func (t *Trainer) Totals() checkpoint.Record { return t.totals }

// backward is replaced in tests.
var backward = fb.Backward

// ProcessUtterance accumulates the counts of one utterance into the global
// sums. On error the global sums are unchanged.
func (t *Trainer) ProcessUtterance(u *corpus.Utterance) (Stats, error) {

	start := time.Now()
	st := Stats{ID: u.ID, Frames: u.NumFrames()}
	cfg := t.Config

	switch {
	case st.Frames < cfg.MinFrames:
		return st, errors.Wrapf(ErrTooShort, "%s has %d frames, min is %d", u.ID, st.Frames, cfg.MinFrames)
	case cfg.MaxFrames > 0 && st.Frames > cfg.MaxFrames:
		return st, errors.Wrapf(ErrTooLong, "%s has %d frames, max is %d", u.ID, st.Frames, cfg.MaxFrames)
	}
	if err := t.checkFeatures(u); err != nil {
		return st, err
	}

	lat, err := t.builder.Build(u.Transcript)
	if err != nil {
		return st, errors.Wrapf(ErrLattice, "%s: %v", u.ID, err)
	}
	im := accum.NewIndexMap(lat)

	defer t.arena.Reset()
	t.scorer.Reset(u.Features)

	tr, err := fb.Forward(lat, u.Features, t.inv, t.scorer, t.params, t.arena)
	if err != nil {
		return st, errors.Wrapf(err, "%s forward", u.ID)
	}
	local := accum.NewLocal(im, t.inv, t.params.Classes, t.arena)
	if cfg.Viterbi {
		_, err = fb.Viterbi(tr, lat, u.Features, t.inv, t.scorer, local)
	} else {
		err = backward(tr, lat, u.Features, t.inv, t.scorer, local, t.params)
	}
	if err != nil {
		return st, errors.Wrapf(err, "%s backward", u.ID)
	}
	if err = t.Global.Merge(local); err != nil {
		return st, err
	}

	st.LogLik = tr.LogLikelihood()
	st.Active = tr.NumActive()
	st.Duration = time.Since(start)
	t.totals.Utterances++
	t.totals.Frames += st.Frames
	t.totals.LogLik += st.LogLik
	glog.V(1).Infof("%s: frames=%d active=%d loglik/frame=%.4f cache hits=%d misses=%d",
		u.ID, st.Frames, st.Active, st.LogLik/float64(st.Frames), t.scorer.Hits, t.scorer.Misses)
	return st, nil
}

func (t *Trainer) checkFeatures(u *corpus.Utterance) error {
	for i, f := range u.Features {
		if len(f) != t.inv.NumStreams {
			return errors.Wrapf(ErrFeatures, "%s frame [%d] has %d streams, expected %d", u.ID, i, len(f), t.inv.NumStreams)
		}
		for s, x := range f {
			if len(x) != t.inv.VectorLength[s] {
				return errors.Wrapf(ErrFeatures, "%s frame [%d] stream [%d] has dim %d, expected %d",
					u.ID, i, s, len(x), t.inv.VectorLength[s])
			}
		}
	}
	return nil
}

// Run processes the corpus from its current position to the end.
// Recoverable errors skip the utterance. A checkpoint is written every
// CheckpointInterval utterances and at the end of the corpus.
func (t *Trainer) Run(c corpus.Corpus) error {

	glog.Infof("training on %d utterances from offset %d", c.Remaining(), c.Offset())
	count := 0
	for {
		offset := c.Offset()
		u, err := c.Next()
		if err == io.EOF {
			break
		}
		st := Stats{Offset: offset}
		if err != nil {
			glog.Warningf("skipping utterance at offset %d: %v", offset, err)
			st.Err = err
			t.totals.Skipped++
		} else {
			st, err = t.ProcessUtterance(u)
			st.Offset = offset
			if err != nil {
				if !IsRecoverable(err) {
					return err
				}
				glog.Warningf("skipping utterance: %v", err)
				st.Err = err
				t.totals.Skipped++
			}
		}
		if t.OnUtterance != nil {
			t.OnUtterance(st)
		}
		count++
		if n := t.Config.CheckpointInterval; n > 0 && count%n == 0 {
			if err := t.Checkpoint(c); err != nil {
				return err
			}
		}
	}
	if err := t.Checkpoint(c); err != nil {
		return err
	}
	glog.Infof("done: utterances=%d skipped=%d frames=%d avg loglik/frame=%.4f",
		t.totals.Utterances, t.totals.Skipped, t.totals.Frames, t.totals.AvgLogLik())
	return nil
}

// Checkpoint writes the global sums and the corpus position.
func (t *Trainer) Checkpoint(c corpus.Corpus) error {
	if t.store == nil {
		return nil
	}
	rec := t.totals
	rec.Offset = c.Offset()
	rec.Remaining = c.Remaining()
	return t.store.Dump(t.Global, rec)
}

// Resume restores the state of an interrupted run and moves the corpus to
// the next unprocessed utterance. Returns false when there is no
// checkpoint to resume from.
func (t *Trainer) Resume(c corpus.Corpus) (bool, error) {

	if t.store == nil {
		return false, nil
	}
	if _, err := t.store.Recover(); err != nil {
		return false, err
	}
	rec, ok, err := t.store.Record()
	if err != nil || !ok {
		return false, err
	}
	if err = t.store.Load(t.Global); err != nil {
		return false, err
	}
	if err = c.Seek(rec.Offset); err != nil {
		return false, err
	}
	t.totals = rec
	glog.Infof("resuming at offset %d with %d utterances done", rec.Offset, rec.Utterances)
	return true, nil
}
