// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import (
	"github.com/akualab/bw/model"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Builder creates the lattice for a transcript.
type Builder interface {
	Build(transcript []string) (*Lattice, error)
}

// Assigner assigns a sequence of model names to a sequence of labels.
// For example, a trivial assigner may assign the label name to the model name:
//
//	Input labels:       []string{"a", "b", "c"}
//	Output model names: []string{"a", "b", "c"}
//
// or it may use a dictionary as is the case in speech recognition:
//
//	Input labels:       []string{"HELLO","WORLD"}
//	Output model names: []string{"HH","AH0","L","OW1","W","ER1","L","D"}
type Assigner interface {
	Assign(labels []string) (modelNames []string, err error)
}

// DirectAssigner implements the Assigner interface.
// Model names correspond one-to-one to the label names.
type DirectAssigner struct{}

// Assign returns a sequence of model names.
func (a DirectAssigner) Assign(labels []string) ([]string, error) {
	return append([]string(nil), labels...), nil
}

// MapAssigner implements the Assigner interface.
// Labels are mapped using a dictionary.
type MapAssigner map[string][]string

// Assign returns a sequence of model names.
func (a MapAssigner) Assign(labels []string) ([]string, error) {
	var names []string
	for _, word := range labels {
		pron, ok := a[word]
		if !ok {
			return nil, errors.Errorf("lattice: no pronunciation for [%s]", word)
		}
		names = append(names, pron...)
	}
	return names, nil
}

// ModelBuilder concatenates left-to-right models from an inventory.
// Each model contributes its emitting states followed by a non-emitting
// exit state. The exit of a model connects to the first state of the next
// model with probability one; the exit of the last model is the final state.
type ModelBuilder struct {
	Inv      *model.Inventory
	Assigner Assigner
}

// Build implements Builder.
func (b *ModelBuilder) Build(transcript []string) (*Lattice, error) {

	assigner := b.Assigner
	if assigner == nil {
		assigner = DirectAssigner{}
	}
	names, err := assigner.Assign(transcript)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Errorf("lattice: empty transcript")
	}

	lat := &Lattice{}
	prevExit := None
	for _, name := range names {
		first, exit, err := appendModel(lat, b.Inv, name)
		if err != nil {
			return nil, err
		}
		if prevExit != None {
			s := &lat.States[first]
			s.Prev = append([]Arc{{From: prevExit, Prob: 1, Row: None, Col: None}}, s.Prev...)
		}
		prevExit = exit
	}

	if err := lat.Validate(); err != nil {
		return nil, err
	}
	glog.V(2).Infof("built lattice with %d states for %d models", lat.Len(), len(names))
	return lat, nil
}

// appendModel appends the emitting states of a model followed by its
// non-emitting exit state. Returns the indices of the first state and of
// the exit state.
func appendModel(lat *Lattice, inv *model.Inventory, name string) (first, exit int, err error) {

	def, ok := inv.Models[name]
	if !ok {
		return 0, 0, errors.Errorf("lattice: unknown model [%s]", name)
	}
	ci := def
	if len(def.CI) > 0 {
		if ci, ok = inv.Models[def.CI]; !ok {
			return 0, 0, errors.Errorf("lattice: unknown CI model [%s] for [%s]", def.CI, name)
		}
	}
	tm := inv.TMat[def.TMat]
	n := len(tm)
	first = lat.Len()

	for i := 0; i < n; i++ {
		s := State{
			TMat:   def.TMat,
			MixW:   def.Senones[i],
			CB:     inv.Codebook(def.Senones[i]),
			CITMat: ci.TMat,
			CIMixW: ci.Senones[i],
			CICB:   inv.Codebook(ci.Senones[i]),
		}
		for k := 0; k < n; k++ {
			if tm[k][i] > 0 {
				s.Prev = append(s.Prev, Arc{From: first + k, Prob: tm[k][i], Row: k, Col: i})
			}
		}
		lat.States = append(lat.States, s)
	}

	x := NonEmitting()
	for k := 0; k < n; k++ {
		if tm[k][n] > 0 {
			x.Prev = append(x.Prev, Arc{From: first + k, Prob: tm[k][n], Row: k, Col: n})
		}
	}
	lat.States = append(lat.States, x)
	return first, lat.Len() - 1, nil
}
