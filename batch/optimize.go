// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package batch minimizes a smooth objective with full gradients:
// steepest descent, nonlinear conjugate gradient and L-BFGS,
// each step refined by a line search.
package batch

import (
	"time"

	"github.com/pkg/errors"

	"github.com/curioloop/descent/linesearch"
	"github.com/curioloop/descent/logger"
	"github.com/curioloop/descent/oracle"
)

// Termination specifies the stopping criteria.
type Termination struct {
	// The iteration stop when the number of iteration reaches limit.
	MaxIterations int
	// The iteration stop when the gradient satisfied: ‖g‖∞ < Epsilon.
	// Zero selects 1e-6.
	Epsilon float64
}

// Problem configures a batch optimizer.
// Zero values of the line-search fields select the method defaults.
type Problem struct {
	Method   Method
	Stop     Termination
	Init     linesearch.Initializer
	Strategy linesearch.Strategy
	C1, C2   float64
	// History is the number of L-BFGS correction pairs (default 6).
	History int
	// Restart forces a steepest descent step every Restart conjugate gradient
	// iterations (default: the problem dimension).
	Restart int
}

// New validates the problem and creates an optimizer.
func (p *Problem) New(log *logger.Logger) (optimizer *Optimizer, err error) {
	init, strategy, c1, c2 := p.Method.searchDefaults()
	if p.Init != linesearch.InitDefault {
		init = p.Init
	}
	if p.Strategy != linesearch.StrategyDefault {
		strategy = p.Strategy
	}
	if p.C1 != 0 {
		c1 = p.C1
	}
	if p.C2 != 0 {
		c2 = p.C2
	}

	stop := p.Stop
	if stop.Epsilon == 0 {
		stop.Epsilon = 1e-6
	}
	history := p.History
	if history == 0 {
		history = 6
	}

	switch {
	case !methods.Valid(p.Method):
		err = errors.Errorf("invalid batch solver %d", p.Method)
	case stop.MaxIterations <= 0:
		err = errors.New("max iteration must greater than 0")
	case !(stop.Epsilon > 0):
		err = errors.New("gradient tolerance must greater than 0")
	case history <= 0:
		err = errors.New("history size must greater than 0")
	case p.Restart < 0:
		err = errors.New("restart interval must not less than 0")
	}
	if err == nil {
		_, err = linesearch.New(strategy, c1, c2)
	}
	if err != nil {
		return
	}

	optimizer = &Optimizer{
		method: p.Method, stop: stop,
		init: init, strategy: strategy, c1: c1, c2: c2,
		history: history, restart: p.Restart,
		logger: log,
	}
	return
}

// Optimizer is an immutable solver configuration, safe to share across goroutines.
type Optimizer struct {
	method   Method
	stop     Termination
	init     linesearch.Initializer
	strategy linesearch.Strategy
	c1, c2   float64
	history  int
	restart  int
	logger   *logger.Logger
}

// Method returns the configured method.
func (opt *Optimizer) Method() Method { return opt.method }

// Minimize runs the solver from x0 and returns the final state.
// The observer is called after every accepted iteration.
// The error is non-nil only for degenerate inputs, numerical outcomes are
// reported by the state status.
func (opt *Optimizer) Minimize(o oracle.Oracle, x0 []float64, observe oracle.Observer) (*oracle.State, error) {
	if err := oracle.Check(o, x0); err != nil {
		return nil, err
	}

	start := time.Now()
	log := opt.logger
	co := oracle.Count(o)
	n := len(x0)

	restart := opt.restart
	if restart == 0 {
		restart = n
	}
	ctx := newIterCtx(opt.method, n, opt.history, restart)
	init := linesearch.NewInit(opt.init)
	search, _ := linesearch.New(opt.strategy, opt.c1, opt.c2)

	s := oracle.NewState(co, x0)
	if log.Enable(logger.LogLast) {
		log.Log("%s: N = %d, ε = %.2e, line-search %s/%s\n", opt.method, n, opt.stop.Epsilon, opt.init, opt.strategy)
	}

	for s.Status == oracle.Running {
		s.Track(co)
		switch {
		case !s.Finite():
			s.Status = oracle.StopDiverged
			continue
		case s.Converged(opt.stop.Epsilon):
			s.Status = oracle.ConvGradNorm
			continue
		case s.NumIter >= opt.stop.MaxIterations:
			s.Status = oracle.StopMaxIter
			continue
		}

		fPrev := s.F
		restarted := ctx.direction(s)
		ctx.remember(s)
		r := search.Search(co, s, init.Step(s))
		if !r.OK {
			s.Track(co)
			s.Status = oracle.StopLineSearch
			continue
		}
		ctx.accept(s)
		s.NumIter++
		s.Track(co)

		if log.Every(s.NumIter) {
			log.Log("At iterate %5d    f= %12.5e    |g|= %12.5e    t= %9.2e\n", s.NumIter, s.F, s.GradNorm(), s.T)
			log.Table(" %4d %4d %4d %9.2e %5t %12.5e %12.5e\n",
				s.NumIter, s.NumValue, r.Trials, s.T, restarted, fPrev-s.F, s.F)
		}
		if log.Enable(logger.LogVerbose) {
			log.Vector("X", s.X)
			log.Vector("G", s.G)
		}

		if observe != nil && s.Finite() && !observe(s) {
			s.Status = oracle.StopUser
		}
	}

	if log.Enable(logger.LogLast) {
		log.Log("%s: %s after %d iterations, %d evaluations, f= %12.5e, |g|= %12.5e, %s\n",
			opt.method, s.Status, s.NumIter, s.NumValue, s.F, s.GradNorm(),
			logger.FormatNs(time.Since(start).Nanoseconds()))
	}
	return s, nil
}
