// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package corpus iterates over training utterances.

A control file lists the utterances of a corpus in YAML:

	path: /data/train
	utterances:
	  - id: utt001
	    file: utt001.json
	  - id: utt002
	    file: utt002.json
	    transcript: [HELLO, WORLD]

Each utterance file is a JSON object with fields "id", "transcript" and
"features". Features are indexed [frame][stream][dim]. A transcript in the
control file overrides the one in the utterance file.
*/
package corpus

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Utterance is a training sample.
type Utterance struct {
	ID         string        `json:"id"`
	Transcript []string      `json:"transcript"`
	Features   [][][]float64 `json:"features"`
}

// NumFrames returns the number of feature frames.
func (u *Utterance) NumFrames() int { return len(u.Features) }

// Corpus is a sequence of utterances with a resumable position.
type Corpus interface {
	// Next returns the next utterance or io.EOF.
	Next() (*Utterance, error)
	// Offset is the position of the next utterance.
	Offset() int
	// Remaining is the number of utterances left.
	Remaining() int
	// Seek moves to an absolute position.
	Seek(offset int) error
}

// Entry is an utterance in a control file.
type Entry struct {
	ID         string   `yaml:"id"`
	File       string   `yaml:"file"`
	Transcript []string `yaml:"transcript,omitempty"`
}

// ControlFile is a corpus backed by utterance files.
type ControlFile struct {
	Path       string  `yaml:"path"`
	Utterances []Entry `yaml:"utterances"`
	index      int
}

// ReadControlFile reads a control file. Relative utterance paths are
// resolved against the directory of the control file when path is empty.
// See ReadControlReader().
func ReadControlFile(fn string) (*ControlFile, error) {

	f, e := os.Open(fn)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	cf, e := ReadControlReader(f)
	if e != nil {
		return nil, errors.Wrapf(e, "corpus: reading %s", fn)
	}
	if len(cf.Path) == 0 {
		cf.Path = filepath.Dir(fn)
	}
	return cf, nil
}

// ReadControlReader reads a control file from an io.Reader.
func ReadControlReader(r io.Reader) (*ControlFile, error) {

	b, e := ioutil.ReadAll(r)
	if e != nil {
		return nil, e
	}
	var cf ControlFile
	if e = yaml.Unmarshal(b, &cf); e != nil {
		return nil, e
	}
	for i, u := range cf.Utterances {
		if len(u.File) == 0 {
			return nil, errors.Errorf("corpus: entry [%d] has no file", i)
		}
	}
	return &cf, nil
}

// Next implements Corpus. The position advances even when the utterance
// file cannot be read so a bad file does not stop the run.
func (cf *ControlFile) Next() (*Utterance, error) {

	if cf.index >= len(cf.Utterances) {
		return nil, io.EOF
	}
	e := cf.Utterances[cf.index]
	cf.index++

	fn := e.File
	if !filepath.IsAbs(fn) {
		fn = filepath.Join(cf.Path, fn)
	}
	u, err := ReadUtteranceFile(fn)
	if err != nil {
		return nil, err
	}
	if len(e.ID) > 0 {
		u.ID = e.ID
	}
	if len(e.Transcript) > 0 {
		u.Transcript = e.Transcript
	}
	return u, nil
}

// Offset implements Corpus.
func (cf *ControlFile) Offset() int { return cf.index }

// Remaining implements Corpus.
func (cf *ControlFile) Remaining() int { return len(cf.Utterances) - cf.index }

// Seek implements Corpus.
func (cf *ControlFile) Seek(offset int) error {
	if offset < 0 || offset > len(cf.Utterances) {
		return errors.Errorf("corpus: offset [%d] out of range [0,%d]", offset, len(cf.Utterances))
	}
	cf.index = offset
	return nil
}

// ReadUtteranceFile reads an utterance from a JSON file.
func ReadUtteranceFile(fn string) (*Utterance, error) {

	f, e := os.Open(fn)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	u, e := ReadUtterance(f)
	if e != nil {
		return nil, errors.Wrapf(e, "corpus: reading %s", fn)
	}
	return u, nil
}

// ReadUtterance reads an utterance from an io.Reader.
func ReadUtterance(r io.Reader) (*Utterance, error) {
	var u Utterance
	if e := json.NewDecoder(r).Decode(&u); e != nil {
		return nil, e
	}
	return &u, nil
}

// WriteUtteranceFile writes an utterance as JSON.
func WriteUtteranceFile(fn string, u *Utterance) error {
	f, e := os.Create(fn)
	if e != nil {
		return e
	}
	if e = json.NewEncoder(f).Encode(u); e != nil {
		f.Close()
		return e
	}
	return f.Close()
}
