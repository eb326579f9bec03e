// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"time"

	"github.com/akualab/bw"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Error is a checkpoint error.
type Error string

func (err Error) Error() string { return string(err) }

const (
	// ErrRetryExhausted is returned when all attempts failed. It is fatal
	// for a training run.
	ErrRetryExhausted = Error("checkpoint: retry exhausted")
	// ErrFormat is returned when an accumulator file cannot be used.
	ErrFormat = Error("checkpoint: bad file format")
)

// Status is the outcome of a retried operation.
type Status int

const (
	StatusCommitted Status = iota
	StatusRetryExhausted
)

func (s Status) String() string {
	if s == StatusCommitted {
		return "committed"
	}
	return "retry-exhausted"
}

// RetryPolicy runs an operation up to MaxAttempts times, sleeping
// Interval between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration

	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewRetryPolicy returns the policy of a training config.
func NewRetryPolicy(c *bw.Config) RetryPolicy {
	return RetryPolicy{MaxAttempts: c.Retry.MaxAttempts, Interval: c.Retry.Interval}
}

// Do runs op until it succeeds or the attempts are exhausted. The attempt
// number starting at 1 is passed to op.
func (r RetryPolicy) Do(op func(attempt int) error) (Status, error) {

	n := r.MaxAttempts
	if n < 1 {
		n = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 1; attempt <= n; attempt++ {
		if err = op(attempt); err == nil {
			return StatusCommitted, nil
		}
		glog.Warningf("attempt %d of %d failed: %v", attempt, n, err)
		if attempt < n {
			sleep(r.Interval)
		}
	}
	return StatusRetryExhausted, errors.Wrapf(ErrRetryExhausted, "after %d attempts: %v", n, err)
}
