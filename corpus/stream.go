// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package corpus

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Decoder streams utterances from a sequence of JSON objects.
type Decoder struct {
	dec *json.Decoder
	n   int
}

// NewDecoder returns a decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(bufio.NewReader(r))}
}

// Next returns the next utterance. Returns io.EOF when no more data is
// available.
func (d *Decoder) Next() (*Utterance, error) {

	u := new(Utterance)
	if err := d.dec.Decode(u); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "corpus: decoding utterance [%d]", d.n)
	}
	d.n++
	return u, nil
}

// ReadStream reads all the utterances from r into memory.
func ReadStream(r io.Reader) (*Memory, error) {

	d := NewDecoder(r)
	m := NewMemory()
	for {
		u, err := d.Next()
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		m.Utterances = append(m.Utterances, u)
	}
}

// Open opens a corpus. Files with extension .json or .jsonl hold a stream
// of utterances; any other file is a control file.
func Open(fn string) (Corpus, error) {

	switch strings.ToLower(filepath.Ext(fn)) {
	case ".json", ".jsonl":
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		m, err := ReadStream(f)
		if err != nil {
			return nil, errors.Wrapf(err, "corpus: reading %s", fn)
		}
		return m, nil
	default:
		return ReadControlFile(fn)
	}
}
