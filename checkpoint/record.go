// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"io"
	"time"

	"github.com/BurntSushi/toml"
)

// Record tells where to resume in the corpus. It is written together
// with the accumulators.
type Record struct {
	// Corpus position of the next utterance.
	Offset int `toml:"offset"`
	// Utterances left after Offset.
	Remaining int `toml:"remaining"`

	Utterances int       `toml:"utterances"`
	Skipped    int       `toml:"skipped"`
	Frames     int       `toml:"frames"`
	LogLik     float64   `toml:"loglik"`
	Written    time.Time `toml:"written"`
}

// AvgLogLik returns the average per-frame log-likelihood.
func (r Record) AvgLogLik() float64 {
	if r.Frames == 0 {
		return 0
	}
	return r.LogLik / float64(r.Frames)
}

// WriteRecord encodes the record as TOML.
func WriteRecord(w io.Writer, r Record) error {
	return toml.NewEncoder(w).Encode(r)
}

// ReadRecord decodes a TOML record.
func ReadRecord(rd io.Reader) (Record, error) {
	var r Record
	_, err := toml.NewDecoder(rd).Decode(&r)
	return r, err
}
