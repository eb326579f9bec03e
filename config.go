// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bw

import (
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Default values used when the config file omits a field.
const (
	DefaultForwardBeam        = 1e-100
	DefaultBackwardBeam       = 1e-100
	DefaultTopN               = 4
	DefaultMinFrames          = 9
	DefaultCheckpointInterval = 1000
	DefaultRetryAttempts      = 10
	DefaultRetryInterval      = 30 * time.Second
)

// Config holds the training parameters. Command flags overwrite config file params.
type Config struct {
	ModelIn     string `yaml:"model_in" json:"model_in"`
	ControlFile string `yaml:"control_file" json:"control_file"`
	OutputDir   string `yaml:"output_dir" json:"output_dir"`

	Reestimate Reestimate `yaml:"reestimate" json:"reestimate"`

	// Accumulate full covariance sums instead of diagonal second moments.
	FullVar bool `yaml:"full_var,omitempty" json:"full_var,omitempty"`
	// Accumulate variance sums around the current means.
	TwoPassVar bool `yaml:"two_pass_var,omitempty" json:"two_pass_var,omitempty"`

	ForwardBeam        float64 `yaml:"forward_beam,omitempty" json:"forward_beam,omitempty"`
	BackwardBeam       float64 `yaml:"backward_beam,omitempty" json:"backward_beam,omitempty"`
	PosteriorThreshold float64 `yaml:"posterior_threshold,omitempty" json:"posterior_threshold,omitempty"`
	TopN               int     `yaml:"top_n,omitempty" json:"top_n,omitempty"`

	// Zero accepts utterances of any length.
	MinFrames int `yaml:"min_frames" json:"min_frames"`
	// Zero means no limit.
	MaxFrames int `yaml:"max_frames,omitempty" json:"max_frames,omitempty"`

	// Zero disables periodic checkpoints; the final one is still written.
	CheckpointInterval int  `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	Viterbi            bool `yaml:"viterbi,omitempty" json:"viterbi,omitempty"`

	Retry Retry `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// Reestimate selects the parameter classes that are accumulated.
type Reestimate struct {
	TMat bool `yaml:"tmat" json:"tmat"`
	MixW bool `yaml:"mixw" json:"mixw"`
	Mean bool `yaml:"mean" json:"mean"`
	Var  bool `yaml:"var" json:"var"`
}

// Retry configures checkpoint write retries.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	Interval    time.Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
}

// NewConfig returns a config with default values and all parameter classes enabled.
func NewConfig() *Config {
	c := zeroableDefaults()
	c.Reestimate = Reestimate{TMat: true, MixW: true, Mean: true, Var: true}
	c.SetDefaults()
	return c
}

// zeroableDefaults returns a config holding the defaults of fields for which
// zero is a valid setting. File values are decoded on top of it.
func zeroableDefaults() *Config {
	return &Config{
		MinFrames:          DefaultMinFrames,
		CheckpointInterval: DefaultCheckpointInterval,
	}
}

// SetDefaults fills zero valued fields. MinFrames and CheckpointInterval are
// left alone: zero disables the length check and periodic checkpoints.
func (c *Config) SetDefaults() {
	if c.ForwardBeam == 0 {
		c.ForwardBeam = DefaultForwardBeam
	}
	if c.BackwardBeam == 0 {
		c.BackwardBeam = DefaultBackwardBeam
	}
	if c.TopN == 0 {
		c.TopN = DefaultTopN
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultRetryAttempts
	}
	if c.Retry.Interval == 0 {
		c.Retry.Interval = DefaultRetryInterval
	}
}

// Validate checks that required params are present and values are in range.
func (c *Config) Validate() error {
	switch {
	case len(c.ModelIn) == 0:
		return errors.New("config: missing model_in")
	case len(c.ControlFile) == 0:
		return errors.New("config: missing control_file")
	case len(c.OutputDir) == 0:
		return errors.New("config: missing output_dir")
	}
	r := c.Reestimate
	if !r.TMat && !r.MixW && !r.Mean && !r.Var {
		return errors.New("config: no parameter class selected for reestimation")
	}
	if c.FullVar && !r.Var {
		return errors.New("config: full_var requires var reestimation")
	}
	if c.ForwardBeam < 0 || c.ForwardBeam >= 1 || c.BackwardBeam < 0 || c.BackwardBeam >= 1 {
		return errors.Errorf("config: beams must be in [0,1), got forward=%g backward=%g",
			c.ForwardBeam, c.BackwardBeam)
	}
	if c.PosteriorThreshold < 0 {
		return errors.Errorf("config: negative posterior_threshold %g", c.PosteriorThreshold)
	}
	if c.MinFrames < 0 || c.CheckpointInterval < 0 {
		return errors.Errorf("config: negative min_frames [%d] or checkpoint_interval [%d]",
			c.MinFrames, c.CheckpointInterval)
	}
	if c.MaxFrames > 0 && c.MaxFrames < c.MinFrames {
		return errors.Errorf("config: max_frames [%d] < min_frames [%d]", c.MaxFrames, c.MinFrames)
	}
	return nil
}

// ReadConfig reads a YAML config file. See ReadConfigReader().
func ReadConfig(fn string) (*Config, error) {
	f, e := os.Open(fn)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return ReadConfigReader(f)
}

// ReadConfigReader reads a YAML config from an io.Reader and sets defaults.
func ReadConfigReader(r io.Reader) (*Config, error) {
	b, e := ioutil.ReadAll(r)
	if e != nil {
		return nil, e
	}
	config := zeroableDefaults()
	e = yaml.Unmarshal(b, config)
	if e != nil {
		return nil, errors.Wrap(e, "config: bad yaml")
	}
	config.SetDefaults()
	return config, nil
}
