// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package bw trains the acoustic parameters of hidden Markov models with
the Baum-Welch algorithm.

The forward-backward recursion runs over one utterance at a time and
produces expected sufficient statistics. Utterance sums are merged into
corpus sums that are checkpointed to disk so a training run can resume
after an interruption.

Subpackages:

	fb          scaled, pruned forward-backward and Viterbi passes
	accum       local and global reestimation sums
	checkpoint  backup-before-overwrite persistence with retries
	trainer     per-utterance orchestration and the corpus loop
*/
package bw

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// Fatal logs the error and exits if err is not nil.
func Fatal(err error) {
	if err != nil {
		glog.Fatal(err)
	}
}

// WriteJSONFile writes v as JSON. Creates the parent dir if needed.
func WriteJSONFile(fn string, v interface{}) error {
	e := os.MkdirAll(filepath.Dir(fn), 0755)
	if e != nil {
		return e
	}
	b, e := json.Marshal(v)
	if e != nil {
		return e
	}
	return ioutil.WriteFile(fn, b, 0644)
}

// ReadJSONFile reads a JSON file into v.
func ReadJSONFile(fn string, v interface{}) error {
	b, e := ioutil.ReadFile(fn)
	if e != nil {
		return e
	}
	return json.Unmarshal(b, v)
}
