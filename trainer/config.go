// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trainer

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/descent/accum"
)

// Config is the configuration surface of a training run.
//
//	solver: lbfgs
//	epochs: 100
//	patience: 8
//	line_search: {initializer: unit, strategy: more-thuente}
//	tune: {lambda: true, eps_log: 0.5}
type Config struct {
	// Solver is a batch or stochastic method id, see NewSolvers.
	Solver string `yaml:"solver"`
	// Epochs bounds the batch iterations or the stochastic epochs.
	Epochs int `yaml:"epochs"`
	// Patience is the number of epochs tolerated without improvement,
	// 32 when unset. Zero stops at the first epoch that does not improve.
	Patience *int `yaml:"patience"`
	// Epsilon is the gradient tolerance of batch solvers (default 1e-6).
	Epsilon float64 `yaml:"epsilon"`
	// Threads is the number of shards per evaluation (default: logical cores).
	Threads int `yaml:"threads"`

	LineSearch LineSearchConfig `yaml:"line_search"`
	// History is the L-BFGS history size.
	History int `yaml:"history"`

	// EpochSize is the number of stochastic updates per epoch
	// (default: one pass over the training samples).
	EpochSize int     `yaml:"epoch_size"`
	BatchSize int     `yaml:"batch_size"`
	Alpha0    float64 `yaml:"alpha0"`
	Decay     float64 `yaml:"decay"`
	Momentum  float64 `yaml:"momentum"`
	Lambda    float64 `yaml:"lambda"`
	// Regularizer is none, l2 or variational (default l2), weighted by Lambda.
	Regularizer string `yaml:"regularizer"`

	Tune TuneConfig `yaml:"tune"`
}

// LineSearchConfig selects the line search of batch solvers, empty fields keep the method defaults.
type LineSearchConfig struct {
	Initializer string  `yaml:"initializer"`
	Strategy    string  `yaml:"strategy"`
	C1          float64 `yaml:"c1"`
	C2          float64 `yaml:"c2"`
}

// TuneConfig selects the hyperparameters searched before the final run.
type TuneConfig struct {
	Lambda    bool `yaml:"lambda"`
	Alpha0    bool `yaml:"alpha0"`
	Decay     bool `yaml:"decay"`
	BatchSize bool `yaml:"batch_size"`
	// EpsLog is the final log10 bracket width (default 0.5).
	EpsLog float64 `yaml:"eps_log"`
	// Splits is the number of candidates per round (default 4).
	Splits int `yaml:"splits"`
	// Parallel evaluates the candidates of a round concurrently.
	Parallel bool `yaml:"parallel"`
}

// ParseConfig decodes a yaml document, unknown fields are rejected.
func ParseConfig(data []byte) (cfg Config, err error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decode trainer config")
	}
	return
}

const defaultPatience = 32

// withDefaults fills the zero fields.
func (c Config) withDefaults() Config {
	if c.Patience == nil {
		patience := defaultPatience
		c.Patience = &patience
	}
	if c.Regularizer == "" {
		c.Regularizer = accum.L2.String()
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-6
	}
	if c.Alpha0 == 0 {
		c.Alpha0 = 0.1
	}
	if c.Tune.EpsLog == 0 {
		c.Tune.EpsLog = 0.5
	}
	return c
}

func (c *Config) check() error {
	switch {
	case c.Solver == "":
		return errors.New("solver is required")
	case c.Epochs <= 0:
		return errors.New("epochs must greater than 0")
	case c.Patience != nil && *c.Patience < 0:
		return errors.New("patience must not less than 0")
	case c.Threads < 0:
		return errors.New("threads must not less than 0")
	case c.EpochSize < 0:
		return errors.New("epoch size must not less than 0")
	case c.BatchSize < 0:
		return errors.New("batch size must not less than 0")
	case !(c.Lambda >= 0 && c.Lambda <= 1):
		return errors.Errorf("regularization weight %g must lie in [0, 1]", c.Lambda)
	}
	_, err := accum.ParseRegularizer(c.Regularizer)
	return err
}
