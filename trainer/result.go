// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trainer drives the solvers over epochs, keeps the best
// validated solution and decides when a training run stops.
package trainer

import (
	"fmt"
	"math"
	"strings"

	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/oracle"
)

// Status is the verdict of the controller after an epoch.
type Status int

const (
	// Better the validation value improved on the optimum.
	Better Status = iota + 1
	// Worse no improvement, still within patience.
	Worse
	// Overfit no improvement for more than patience epochs.
	Overfit
	// Solved the solver converged.
	Solved
	// Diverged the validation value is not finite.
	Diverged
)

var statuses = enum.New("trainer status",
	enum.Pair[Status]{Value: Better, ID: "better"},
	enum.Pair[Status]{Value: Worse, ID: "worse"},
	enum.Pair[Status]{Value: Overfit, ID: "overfit"},
	enum.Pair[Status]{Value: Solved, ID: "solved"},
	enum.Pair[Status]{Value: Diverged, ID: "diverged"},
)

func (s Status) String() string { return statuses.String(s) }

// Terminal reports whether training must stop.
func (s Status) Terminal() bool { return s == Overfit || s == Solved || s == Diverged }

// Hyper is a named hyperparameter value.
type Hyper struct {
	Name  string
	Value float64
}

// Hypers is the hyperparameter configuration of a run.
type Hypers []Hyper

func (hs Hypers) String() string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = fmt.Sprintf("%s=%g", h.Name, h.Value)
	}
	return strings.Join(parts, ",")
}

// Result is the history of a training run with its best state.
// It is frozen once a terminal status has been reached.
type Result struct {
	patience int
	status   Status
	stale    int // consecutive epochs without improvement

	history       []State
	optimum       State
	optimumParams []float64
	optimumConfig Hypers
}

// NewResult creates an empty result tolerating patience epochs without improvement.
func NewResult(patience int) *Result {
	r := &Result{patience: patience}
	r.optimum.Valid = Measurement{Value: math.Inf(1), Error: math.Inf(1)}
	return r
}

// Update records the state of a new epoch and returns the controller verdict.
// converged tells whether the solver met its own convergence test at params.
func (r *Result) Update(params []float64, state State, config Hypers, converged bool) Status {
	if r.status.Terminal() {
		return r.status
	}
	r.history = append(r.history, state)

	v := state.Valid.Value
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		r.status = Diverged
	case state.Less(r.optimum):
		r.optimum = state
		r.optimumParams = append([]float64(nil), params...)
		r.optimumConfig = append(Hypers(nil), config...)
		r.stale = 0
		r.status = Better
	case converged:
		r.status = Solved
	default:
		r.stale++
		if r.stale > r.patience {
			r.status = Overfit
		} else {
			r.status = Worse
		}
	}
	return r.status
}

// Finish applies the verdict derived from how the solver ended,
// unless the result is already terminal.
func (r *Result) Finish(status Status) Status {
	if !r.status.Terminal() && status.Terminal() {
		r.status = status
	}
	return r.status
}

// Outcome maps the final solver state to a controller verdict.
// A stalled line search counts as solved when the gradient test holds at the
// current point and as diverged otherwise. Budget or user stops yield zero.
func Outcome(s *oracle.State, epsilon float64) Status {
	switch s.Status {
	case oracle.ConvGradNorm:
		return Solved
	case oracle.StopDiverged:
		return Diverged
	case oracle.StopLineSearch:
		if s.Converged(epsilon) {
			return Solved
		}
		return Diverged
	}
	return 0
}

// Merge keeps the better of r and o, as seen from their optimum states.
func (r *Result) Merge(o *Result) Status {
	if o.Less(r) {
		*r = *o
		return Better
	}
	return Worse
}

// Less orders results by optimum state.
func (r *Result) Less(o *Result) bool { return r.optimum.Less(o.optimum) }

func (r *Result) Status() Status           { return r.status }
func (r *Result) Patience() int            { return r.patience }
func (r *Result) History() []State         { return r.history }
func (r *Result) Optimum() State           { return r.optimum }
func (r *Result) OptimumEpoch() int        { return r.optimum.Epoch }
func (r *Result) OptimumParams() []float64 { return r.optimumParams }
func (r *Result) OptimumConfig() Hypers    { return r.optimumConfig }

// ConvergenceSpeed of the recorded history.
func (r *Result) ConvergenceSpeed() float64 { return ConvergenceSpeed(r.history) }

func (r *Result) String() string {
	o := r.optimum
	return fmt.Sprintf("train=%v, valid=%v, test=%v, %v, epoch=%d, speed=%.4g/s",
		o.Train, o.Valid, o.Test, r.optimumConfig, o.Epoch, r.ConvergenceSpeed())
}
