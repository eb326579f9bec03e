// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package corpus

import (
	"io"

	"github.com/pkg/errors"
)

// Memory is a corpus held in memory.
type Memory struct {
	Utterances []*Utterance
	index      int
}

// NewMemory creates a corpus from a list of utterances.
func NewMemory(utts ...*Utterance) *Memory {
	return &Memory{Utterances: utts}
}

// Next implements Corpus.
func (m *Memory) Next() (*Utterance, error) {
	if m.index >= len(m.Utterances) {
		return nil, io.EOF
	}
	u := m.Utterances[m.index]
	m.index++
	return u, nil
}

// Offset implements Corpus.
func (m *Memory) Offset() int { return m.index }

// Remaining implements Corpus.
func (m *Memory) Remaining() int { return len(m.Utterances) - m.index }

// Seek implements Corpus.
func (m *Memory) Seek(offset int) error {
	if offset < 0 || offset > len(m.Utterances) {
		return errors.Errorf("corpus: offset [%d] out of range [0,%d]", offset, len(m.Utterances))
	}
	m.index = offset
	return nil
}
