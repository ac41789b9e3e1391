// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trainer

import (
	"github.com/curioloop/descent/batch"
	"github.com/curioloop/descent/linesearch"
	"github.com/curioloop/descent/logger"
	"github.com/curioloop/descent/oracle"
	"github.com/curioloop/descent/registry"
	"github.com/curioloop/descent/stoch"
)

// Minimizer is a configured batch or stochastic solver.
type Minimizer interface {
	Minimize(o oracle.Oracle, x0 []float64, observe oracle.Observer) (*oracle.State, error)
}

// Setting holds the tunable hyperparameters of one run.
type Setting struct {
	Alpha0    float64
	Decay     float64
	Lambda    float64
	BatchSize int
	EpochSize int
}

// Solver builds a Minimizer from the configuration and the current setting.
type Solver struct {
	// Stochastic solvers consume mini-batches and use the learning rate settings.
	Stochastic bool
	New        func(cfg *Config, set Setting, log *logger.Logger) (Minimizer, error)
}

// NewSolvers registers every batch and stochastic method under its id.
func NewSolvers() *registry.Registry[Solver] {
	r := registry.New[Solver]("solver")
	for _, id := range batch.Methods() {
		method, _ := batch.ParseMethod(id)
		mustRegister(r, id, "batch solver "+id, Solver{New: newBatch(method)})
	}
	for _, id := range stoch.Methods() {
		method, _ := stoch.ParseMethod(id)
		mustRegister(r, id, "stochastic solver "+id, Solver{Stochastic: true, New: newStoch(method)})
	}
	return r
}

func mustRegister(r *registry.Registry[Solver], id, help string, s Solver) {
	if err := r.Register(id, help, s); err != nil {
		panic(err)
	}
}

func newBatch(method batch.Method) func(*Config, Setting, *logger.Logger) (Minimizer, error) {
	return func(cfg *Config, _ Setting, log *logger.Logger) (Minimizer, error) {
		p := batch.Problem{
			Method:  method,
			Stop:    batch.Termination{MaxIterations: cfg.Epochs, Epsilon: cfg.Epsilon},
			C1:      cfg.LineSearch.C1,
			C2:      cfg.LineSearch.C2,
			History: cfg.History,
		}
		var err error
		if id := cfg.LineSearch.Initializer; id != "" {
			if p.Init, err = linesearch.ParseInitializer(id); err != nil {
				return nil, err
			}
		}
		if id := cfg.LineSearch.Strategy; id != "" {
			if p.Strategy, err = linesearch.ParseStrategy(id); err != nil {
				return nil, err
			}
		}
		opt, err := p.New(log)
		if err != nil {
			return nil, err
		}
		return opt, nil
	}
}

func newStoch(method stoch.Method) func(*Config, Setting, *logger.Logger) (Minimizer, error) {
	return func(cfg *Config, set Setting, log *logger.Logger) (Minimizer, error) {
		p := stoch.Problem{
			Method:    method,
			Epochs:    cfg.Epochs,
			EpochSize: set.EpochSize,
			Alpha0:    set.Alpha0,
			Decay:     set.Decay,
			Momentum:  cfg.Momentum,
		}
		if method == stoch.ADADELTA && p.Decay == 0 {
			p.Decay = 0.95
		}
		opt, err := p.New(log)
		if err != nil {
			return nil, err
		}
		return opt, nil
	}
}
