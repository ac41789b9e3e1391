// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Status is the outcome of a solver run.
type Status int

const (
	Running Status = 0
	// Converged is set on every successful termination.
	Converged Status = 1 << (4 + iota)
	// Stopped is set on every termination that did not reach the tolerance.
	Stopped
)

const (
	// ConvGradNorm the gradient satisfied ‖g‖∞ < ε.
	ConvGradNorm = Converged | (1 + iota)
	// StopMaxIter the iteration (or epoch) budget was exhausted.
	StopMaxIter = Stopped | (1 + iota)
	// StopLineSearch no acceptable step was found along the descent direction.
	StopLineSearch
	// StopDiverged the function value, gradient or iterate became non-finite.
	StopDiverged
	// StopUser the observer requested to stop.
	StopUser
)

// String returns a readable description of the status.
func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case ConvGradNorm:
		return "CONVERGENCE: NORM_OF_GRADIENT_<=_EPSILON"
	case StopMaxIter:
		return "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case StopLineSearch:
		return "ABNORMAL_TERMINATION_IN_LNSRCH"
	case StopDiverged:
		return "ABNORMAL_TERMINATION_NON_FINITE_VALUE"
	case StopUser:
		return "STOP: CALLBACK REQUESTED HALT"
	default:
		return "UNKNOWN TASK"
	}
}

// Observer is called by a solver at every report, returning false stops the run.
// The state keeps changing after the call and must be cloned to be retained.
type Observer func(s *State) bool

// State is the solver location: point, value, gradient and search direction,
// with the evaluation statistics accumulated so far.
// The invariant F == Value(X) holds whenever a solver hands a state out.
type State struct {
	X, G, D []float64
	F       float64
	// T is the last accepted line-search step.
	T float64

	Status   Status
	NumIter  int
	NumValue int
	NumGrad  int
}

// NewState evaluates o at a copy of x0.
func NewState(o Oracle, x0 []float64) *State {
	n := len(x0)
	s := &State{
		X: append(make([]float64, 0, n), x0...),
		G: make([]float64, n),
		D: make([]float64, n),
	}
	s.F = o.ValueGrad(s.X, s.G)
	s.Track(o)
	return s
}

// Track copies the evaluation statistics of o when it is a Counter.
func (s *State) Track(o Oracle) {
	if c, ok := o.(*Counter); ok {
		s.NumValue, s.NumGrad = c.Calls()
	}
}

// GradNorm returns ‖g‖∞.
func (s *State) GradNorm() float64 {
	if len(s.G) == 0 {
		return math.Inf(1)
	}
	return floats.Norm(s.G, math.Inf(1))
}

// Converged reports whether ‖g‖∞ < ε.
func (s *State) Converged(epsilon float64) bool {
	return s.GradNorm() < epsilon
}

// Finite reports whether f, x and g are all finite.
func (s *State) Finite() bool {
	return !math.IsNaN(s.F) && !math.IsInf(s.F, 0) && Finite(s.X) && Finite(s.G)
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.X = append([]float64(nil), s.X...)
	c.G = append([]float64(nil), s.G...)
	c.D = append([]float64(nil), s.D...)
	return &c
}

// Less orders states by function value, non-finite values being the worst.
func Less(a, b *State) bool {
	return finiteOrMax(a.F) < finiteOrMax(b.F)
}

func finiteOrMax(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}
