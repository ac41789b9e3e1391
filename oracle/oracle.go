// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oracle defines the value/gradient interface consumed by every solver
// and the state a solver reports back.
package oracle

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/numdiff"
)

// Oracle is an objective function 𝒇 : ℝⁿ → ℝ with its gradient.
//
// Size is constant for the lifetime of the oracle. Value and ValueGrad are pure
// functions of x, although implementations may keep internal caches.
// ValueGrad stores 𝒇′(x) into g, which has length Size().
type Oracle interface {
	Size() int
	Value(x []float64) float64
	ValueGrad(x, g []float64) float64
}

// ErrDegenerate reports a zero-dimensional oracle or a mismatching point.
var ErrDegenerate = errors.New("degenerate problem")

// Check rejects oracles and starting points a solver cannot work with.
func Check(o Oracle, x0 []float64) error {
	switch {
	case o == nil:
		return errors.Wrap(ErrDegenerate, "oracle is required")
	case o.Size() <= 0:
		return errors.Wrapf(ErrDegenerate, "oracle size %d must be positive", o.Size())
	case len(x0) != o.Size():
		return errors.Wrapf(ErrDegenerate, "starting point size %d does not match oracle size %d", len(x0), o.Size())
	}
	return nil
}

// Func adapts a set of closures to the Oracle interface.
// When FG is nil the gradient is approximated by central differences.
type Func struct {
	N  int
	F  func(x []float64) float64
	FG func(x, g []float64) float64
}

func (f *Func) Size() int { return f.N }

func (f *Func) Value(x []float64) float64 {
	if f.F == nil {
		g := make([]float64, len(x))
		return f.FG(x, g)
	}
	return f.F(x)
}

func (f *Func) ValueGrad(x, g []float64) float64 {
	if f.FG != nil {
		return f.FG(x, g)
	}
	as := numdiff.ApproxSpec{N: f.N, Object: f.F, Method: numdiff.Central}
	if err := as.Diff(x, g); err != nil {
		panic(err)
	}
	return f.F(x)
}

// Counter wraps an oracle and records how many times it has been queried.
// It is not safe for concurrent use.
type Counter struct {
	Oracle
	values, grads int
}

// Count wraps o; wrapping a Counter again shares its statistics.
func Count(o Oracle) *Counter {
	if c, ok := o.(*Counter); ok {
		return c
	}
	return &Counter{Oracle: o}
}

func (c *Counter) Value(x []float64) float64 {
	c.values++
	return c.Oracle.Value(x)
}

func (c *Counter) ValueGrad(x, g []float64) float64 {
	c.values++
	c.grads++
	return c.Oracle.ValueGrad(x, g)
}

// Calls returns the number of function value and gradient evaluations.
func (c *Counter) Calls() (values, grads int) {
	return c.values, c.grads
}

// Reset clears the evaluation statistics.
func (c *Counter) Reset() {
	c.values, c.grads = 0, 0
}

// GradAccuracy returns the largest deviation between the analytic gradient of o at x
// and its central difference approximation, relative to 1+‖g‖∞.
func GradAccuracy(o Oracle, x []float64) (float64, error) {
	if err := Check(o, x); err != nil {
		return 0, err
	}
	n := o.Size()
	g := make([]float64, n)
	o.ValueGrad(x, g)

	approx := make([]float64, n)
	as := numdiff.ApproxSpec{N: n, Object: o.Value, Method: numdiff.Central}
	if err := as.Diff(append([]float64(nil), x...), approx); err != nil {
		return 0, err
	}
	return floats.Distance(g, approx, math.Inf(1)) / (1 + floats.Norm(g, math.Inf(1))), nil
}

// Finite reports whether every entry of v is finite.
func Finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
