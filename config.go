// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sshmm

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

// Structure alphabet names.
const (
	Contexts   = "contexts"
	DotBracket = "dotbracket"
)

// Config is the configuration of a training run. It is usually read from a
// yaml file and then overridden by command line flags.
type Config struct {
	Name          string    `yaml:"name,omitempty" json:"name,omitempty"`
	SequenceFile  string    `yaml:"sequence_file,omitempty" json:"sequence_file,omitempty"`
	StructureFile string    `yaml:"structure_file,omitempty" json:"structure_file,omitempty"`
	OutDir        string    `yaml:"out_dir,omitempty" json:"out_dir,omitempty"`
	ModelIn       string    `yaml:"model_in,omitempty" json:"model_in,omitempty"`
	Alphabet      Alphabet  `yaml:"alphabet" json:"alphabet"`
	Train         Train     `yaml:"train" json:"train"`
	Batch         []Dataset `yaml:"batch,omitempty" json:"batch,omitempty"`
}

// Alphabet controls how sequence/structure records become observations.
type Alphabet struct {
	Structure     string `yaml:"structure_alphabet" json:"structure_alphabet"`
	IncludeN      bool   `yaml:"include_n" json:"include_n"`
	OnlyBestShape bool   `yaml:"only_best_shape" json:"only_best_shape"`
	ViewpointMask bool   `yaml:"viewpoint_mask" json:"viewpoint_mask"`
}

// Train holds the trainer parameters.
type Train struct {
	MotifLength         int           `yaml:"motif_length" json:"motif_length"`
	BaumWelch           bool          `yaml:"baum_welch" json:"baum_welch"`
	Flexibility         int           `yaml:"flexibility" json:"flexibility"`
	BlockSize           int           `yaml:"block_size" json:"block_size"`
	Threshold           float64       `yaml:"threshold" json:"threshold"`
	TerminationInterval int           `yaml:"termination_interval" json:"termination_interval"`
	WriteModelState     bool          `yaml:"write_model_state" json:"write_model_state"`
	MaxIterations       int           `yaml:"max_iterations" json:"max_iterations"`
	Seed                int64         `yaml:"seed" json:"seed"`
	Workers             int           `yaml:"workers" json:"workers"`
	Pseudocount         float64       `yaml:"pseudocount" json:"pseudocount"`
	Perturbation        float64       `yaml:"perturbation" json:"perturbation"`
	BWTolerance         float64       `yaml:"bw_tolerance" json:"bw_tolerance"`
	BWMaxIterations     int           `yaml:"bw_max_iterations" json:"bw_max_iterations"`
	CacheSize           int           `yaml:"cache_size" json:"cache_size"`
	Timeout             time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Dataset is one entry of a batch run.
type Dataset struct {
	Name          string `yaml:"name" json:"name"`
	SequenceFile  string `yaml:"sequence_file" json:"sequence_file"`
	StructureFile string `yaml:"structure_file" json:"structure_file"`
}

// DefaultSeed is used when no seed is configured.
const DefaultSeed = 33

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	return &Config{
		Name:   "sshmm",
		OutDir: ".",
		Alphabet: Alphabet{
			Structure:     Contexts,
			ViewpointMask: true,
		},
		Train: DefaultTrain(),
	}
}

// DefaultTrain returns the default trainer parameters.
func DefaultTrain() Train {
	return Train{
		MotifLength:         6,
		BaumWelch:           true,
		Flexibility:         10,
		BlockSize:           1,
		Threshold:           10,
		TerminationInterval: 100,
		MaxIterations:       100000,
		Seed:                DefaultSeed,
		Workers:             runtime.NumCPU(),
		Pseudocount:         0.1,
		Perturbation:        0.05,
		BWTolerance:         1e-3,
		BWMaxIterations:     100,
		CacheSize:           1024,
	}
}

// ReadConfig reads a yaml config file on top of the default values.
func ReadConfig(fn string) (*Config, error) {

	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadConfigReader(f)
}

// ReadConfigReader reads a yaml config from an io.Reader on top of the
// default values. Fields missing in the yaml keep their defaults.
func ReadConfigReader(r io.Reader) (*Config, error) {

	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(b, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return config, nil
}

// Write writes the config as yaml.
func (c *Config) Write(w io.Writer) error {

	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	_, e := w.Write(b)
	return e
}

// WriteFile writes the config as a yaml file. Creates the parent dir.
func (c *Config) WriteFile(fn string) error {

	if e := os.MkdirAll(filepath.Dir(fn), 0755); e != nil {
		return e
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Write(f)
}

// Validate checks the parameters that can be checked without looking at data.
func (c *Config) Validate() error {

	switch c.Alphabet.Structure {
	case Contexts, DotBracket:
	default:
		return fmt.Errorf("%w: unknown structure alphabet [%s]", ErrConfiguration, c.Alphabet.Structure)
	}
	return c.Train.Validate()
}

// Validate checks the trainer parameters.
func (t Train) Validate() error {

	switch {
	case t.MotifLength < 1:
		return fmt.Errorf("%w: motif_length must be positive, got %d", ErrConfiguration, t.MotifLength)
	case t.Flexibility < 0:
		return fmt.Errorf("%w: flexibility must be non-negative, got %d", ErrConfiguration, t.Flexibility)
	case t.BlockSize < 1:
		return fmt.Errorf("%w: block_size must be positive, got %d", ErrConfiguration, t.BlockSize)
	case t.Threshold < 0:
		return fmt.Errorf("%w: threshold must be non-negative, got %g", ErrConfiguration, t.Threshold)
	case t.TerminationInterval < 1:
		return fmt.Errorf("%w: termination_interval must be positive, got %d", ErrConfiguration, t.TerminationInterval)
	case t.MaxIterations < 1:
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrConfiguration, t.MaxIterations)
	case t.Pseudocount <= 0:
		return fmt.Errorf("%w: pseudocount must be positive, got %g", ErrConfiguration, t.Pseudocount)
	case t.Perturbation < 0 || t.Perturbation >= 1:
		return fmt.Errorf("%w: perturbation must be in [0,1), got %g", ErrConfiguration, t.Perturbation)
	case t.BWMaxIterations < 1:
		return fmt.Errorf("%w: bw_max_iterations must be positive, got %d", ErrConfiguration, t.BWMaxIterations)
	case t.BWTolerance < 0:
		return fmt.Errorf("%w: bw_tolerance must be non-negative, got %g", ErrConfiguration, t.BWTolerance)
	case t.Timeout < 0:
		return fmt.Errorf("%w: timeout must be non-negative, got %v", ErrConfiguration, t.Timeout)
	}
	return nil
}

// NumWorkers returns the number of goroutines used for inference.
func (t Train) NumWorkers() int {
	if t.Workers < 1 {
		return 1
	}
	return t.Workers
}
