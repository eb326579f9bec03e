// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bw

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {

	fn := filepath.Join(t.TempDir(), "config.yaml")
	t.Logf("Config File: %s.", fn)
	err := ioutil.WriteFile(fn, []byte(config), 0644)
	CheckError(t, err)

	config, e := ReadConfig(fn)
	CheckError(t, e)
	t.Logf("Config: %+v", config)

	if config.ModelIn != "model.json" {
		t.Fatalf("ModelIn is [%s]. Expected \"model.json\".", config.ModelIn)
	}
	if !config.Reestimate.TMat || config.Reestimate.MixW || !config.Reestimate.Var {
		t.Fatalf("wrong reestimate flags: %+v", config.Reestimate)
	}
	if config.ForwardBeam != 1e-20 {
		t.Fatalf("ForwardBeam is [%g]. Expected 1e-20.", config.ForwardBeam)
	}
	// Omitted values get defaults.
	if config.BackwardBeam != DefaultBackwardBeam {
		t.Fatalf("BackwardBeam is [%g]. Expected default.", config.BackwardBeam)
	}
	if config.MinFrames != DefaultMinFrames {
		t.Fatalf("MinFrames is [%d]. Expected default.", config.MinFrames)
	}
	if config.CheckpointInterval != DefaultCheckpointInterval {
		t.Fatalf("CheckpointInterval is [%d]. Expected default.", config.CheckpointInterval)
	}
	if config.Retry.MaxAttempts != 3 || config.Retry.Interval != 2*time.Second {
		t.Fatalf("wrong retry: %+v", config.Retry)
	}
	CheckError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {

	c := NewConfig()
	if e := c.Validate(); e == nil || !strings.Contains(e.Error(), "model_in") {
		t.Fatalf("expected missing model_in error, got %v", e)
	}
	c.ModelIn, c.ControlFile, c.OutputDir = "m", "c", "o"
	CheckError(t, c.Validate())

	c.Reestimate = Reestimate{}
	if c.Validate() == nil {
		t.Fatal("expected error when no class is reestimated")
	}
	c.Reestimate.Mean = true
	c.FullVar = true
	if c.Validate() == nil {
		t.Fatal("expected error for full_var without var")
	}
	c.Reestimate.Var = true
	c.ForwardBeam = 1.5
	if c.Validate() == nil {
		t.Fatal("expected beam range error")
	}
}

func TestConfigZeroValues(t *testing.T) {

	config, e := ReadConfigReader(strings.NewReader(config + "min_frames: 0\ncheckpoint_interval: 0\n"))
	CheckError(t, e)
	config.SetDefaults()
	if config.MinFrames != 0 || config.CheckpointInterval != 0 {
		t.Fatalf("zero values were replaced: min_frames=%d checkpoint_interval=%d",
			config.MinFrames, config.CheckpointInterval)
	}
	CheckError(t, config.Validate())

	config.CheckpointInterval = -1
	if config.Validate() == nil {
		t.Fatal("expected error for negative checkpoint_interval")
	}
}

const config string = `
model_in: model.json
control_file: train.yaml
output_dir: out
reestimate: {tmat: true, mixw: false, mean: true, var: true}
forward_beam: 1e-20
retry:
  max_attempts: 3
  interval: 2s
`
