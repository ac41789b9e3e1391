// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stoch minimizes an objective from noisy gradients.
//
// Each epoch performs EpochSize unconditional updates, every oracle gradient
// query being one mini-batch sample. At the end of an epoch the reported point
// is evaluated with Value (the full objective) and handed to the observer.
package stoch

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/curioloop/descent/logger"
	"github.com/curioloop/descent/oracle"
)

// Problem configures a stochastic optimizer.
type Problem struct {
	Method Method
	// Epochs is the number of checkpoints.
	Epochs int
	// EpochSize is the number of updates between checkpoints.
	EpochSize int
	// Alpha0 is the initial learning rate, unused by ADADELTA.
	Alpha0 float64
	// Decay shrinks the learning rate as α₀/(1 + Decay·t).
	// ADADELTA uses it as the averaging factor ρ ∈ (0, 1).
	Decay float64
	// Momentum is the SGA averaging factor in (0, 1) (default 0.9).
	Momentum float64
	// Epsilon regularizes the ADAGRAD and ADADELTA denominators (default 1e-6).
	Epsilon float64
}

// New validates the problem and creates an optimizer.
func (p *Problem) New(log *logger.Logger) (optimizer *Optimizer, err error) {
	momentum, epsilon := p.Momentum, p.Epsilon
	if momentum == 0 {
		momentum = 0.9
	}
	if epsilon == 0 {
		epsilon = 1e-6
	}

	switch {
	case !methods.Valid(p.Method):
		err = errors.Errorf("invalid stochastic solver %d", p.Method)
	case p.Epochs <= 0:
		err = errors.New("epochs must greater than 0")
	case p.EpochSize <= 0:
		err = errors.New("epoch size must greater than 0")
	case p.Method != ADADELTA && !(p.Alpha0 > 0 && !math.IsInf(p.Alpha0, 1)):
		err = errors.Errorf("learning rate %g must greater than 0", p.Alpha0)
	case p.Method == ADADELTA && !(p.Decay > 0 && p.Decay < 1):
		err = errors.Errorf("adadelta decay %g must lie in (0, 1)", p.Decay)
	case !(p.Decay >= 0 && !math.IsInf(p.Decay, 1)):
		err = errors.Errorf("decay %g must not less than 0", p.Decay)
	case !(momentum > 0 && momentum < 1):
		err = errors.Errorf("momentum %g must lie in (0, 1)", p.Momentum)
	case !(epsilon > 0):
		err = errors.Errorf("epsilon %g must greater than 0", p.Epsilon)
	}
	if err != nil {
		return
	}

	optimizer = &Optimizer{
		method: p.Method, epochs: p.Epochs, epochSize: p.EpochSize,
		alpha0: p.Alpha0, decay: p.Decay,
		momentum: momentum, epsilon: epsilon,
		logger: log,
	}
	return
}

// Optimizer is an immutable solver configuration, safe to share across goroutines.
type Optimizer struct {
	method            Method
	epochs, epochSize int
	alpha0, decay     float64
	momentum, epsilon float64
	logger            *logger.Logger
}

// Method returns the configured method.
func (opt *Optimizer) Method() Method { return opt.method }

// Minimize runs all epochs from x0 and returns the last checkpoint.
// The observer is called at every checkpoint.
// The returned state has no gradient, NumIter counts the completed epochs.
func (opt *Optimizer) Minimize(o oracle.Oracle, x0 []float64, observe oracle.Observer) (*oracle.State, error) {
	if err := oracle.Check(o, x0); err != nil {
		return nil, err
	}

	start := time.Now()
	log := opt.logger
	co := oracle.Count(o)
	ctx := newIterCtx(opt, x0)

	x := append([]float64(nil), x0...)
	s := &oracle.State{X: x}
	s.F = co.Value(s.X)
	s.Track(co)

	if log.Enable(logger.LogLast) {
		log.Log("%s: N = %d, epochs = %d × %d, α₀ = %.2e, decay = %.2e\n",
			opt.method, len(x0), opt.epochs, opt.epochSize, opt.alpha0, opt.decay)
	}

	t := 0
	for s.Status == oracle.Running {
		if !s.Finite() {
			s.Status = oracle.StopDiverged
			break
		}
		if s.NumIter >= opt.epochs {
			s.Status = oracle.StopMaxIter
			break
		}

		for i := 0; i < opt.epochSize; i++ {
			f := ctx.step(co, x, t)
			t++
			if math.IsNaN(f) || math.IsInf(f, 0) {
				s.F = f
				break
			}
		}
		s.NumIter++

		if !math.IsNaN(s.F) && !math.IsInf(s.F, 0) {
			s.X = ctx.report(x)
			s.F = co.Value(s.X)
		}
		s.Track(co)

		if log.Every(s.NumIter) {
			log.Log("At epoch %5d    f= %12.5e    α= %9.2e\n", s.NumIter, s.F, ctx.alpha(t))
			log.Table(" %4d %6d %6d %12.5e\n", s.NumIter, t, s.NumGrad, s.F)
		}
		if log.Enable(logger.LogVerbose) {
			log.Vector("X", s.X)
		}

		if s.Finite() && observe != nil && !observe(s) {
			s.Status = oracle.StopUser
		}
	}

	// detach the state from the work buffers
	s.X = append([]float64(nil), s.X...)

	if log.Enable(logger.LogLast) {
		log.Log("%s: %s after %d epochs, %d gradients, f= %12.5e, %s\n",
			opt.method, s.Status, s.NumIter, s.NumGrad, s.F,
			logger.FormatNs(time.Since(start).Nanoseconds()))
	}
	return s, nil
}
