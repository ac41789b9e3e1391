// Package numdiff approximates gradients by finite differences.
//
// The oracles of this module fall back to it when no analytic gradient is
// supplied, and use it to measure the accuracy of analytic gradients.
package numdiff

import (
	"math"

	"github.com/pkg/errors"
)

// Method selects the difference scheme.
type Method int

const (
	// Forward (f(x+h) - f(x)) / h, first order accurate, n+1 evaluations.
	Forward Method = iota
	// Central (f(x+h) - f(x-h)) / 2h, second order accurate, 2n evaluations.
	Central
)

var machEps = math.Nextafter(1, 2) - 1

// stepEps returns the relative step minimizing the truncation plus rounding error:
// ε^½ for Forward and ε^⅓ for Central.
func stepEps(m Method) float64 {
	if m == Central {
		return math.Cbrt(machEps)
	}
	return math.Sqrt(machEps)
}

// ApproxSpec estimates the gradient of a scalar function 𝒇 : ℝⁿ → ℝ.
//
// The step of coordinate i is chosen as
//   - AbsStep when it is non-zero
//   - RelStep·|xᵢ| with the sign of xᵢ when RelStep is non-zero
//   - stepEps·max(1, |xᵢ|) with the sign of xᵢ otherwise
//
// A step that vanishes once added to xᵢ falls back to the automatic one.
// Central differences only use the magnitude of the step.
//
// see scipy.optimize._numdiff.approx_derivative (BSD license)
type ApproxSpec struct {
	N int
	// Object is evaluated at points sharing the storage of x0,
	// every coordinate is restored after its evaluations.
	Object  func(x []float64) float64
	Method  Method
	RelStep float64
	AbsStep float64

	absStep []float64
}

// Check validates the spec against the base point and the gradient storage.
func (as *ApproxSpec) Check(x0, grad []float64) error {
	switch {
	case as.N <= 0:
		return errors.Errorf("dimension %d must be positive", as.N)
	case as.Method != Forward && as.Method != Central:
		return errors.Errorf("unknown difference method %d", as.Method)
	case as.Object == nil:
		return errors.New("object function is required")
	case len(x0) != as.N:
		return errors.Errorf("point has %d coordinates, expect %d", len(x0), as.N)
	case len(grad) != as.N:
		return errors.Errorf("gradient has %d coordinates, expect %d", len(grad), as.N)
	}
	if len(as.absStep) != as.N {
		as.absStep = make([]float64, as.N)
	}
	return nil
}

// Diff stores the approximate gradient of Object at x0 into grad.
func (as *ApproxSpec) Diff(x0, grad []float64) error {
	if err := as.Check(x0, grad); err != nil {
		return err
	}
	as.absoluteStep(x0)

	f := as.Object
	var f0 float64
	if as.Method == Forward {
		f0 = f(x0)
	}
	for i, h := range as.absStep {
		xi := x0[i]
		x0[i] = xi + h
		hi := x0[i] - xi // exact step after rounding
		fh := f(x0)
		if as.Method == Central {
			x0[i] = xi - h
			grad[i] = (fh - f(x0)) / (2 * h)
		} else {
			grad[i] = (fh - f0) / hi
		}
		x0[i] = xi
	}
	return nil
}

func (as *ApproxSpec) absoluteStep(x0 []float64) {
	eps := stepEps(as.Method)
	auto := func(v float64) float64 { return math.Copysign(eps, v) * math.Max(1, math.Abs(v)) }

	for i, v := range x0 {
		h := auto(v)
		switch {
		case as.AbsStep != 0:
			h = as.AbsStep
		case as.RelStep != 0:
			h = math.Copysign(as.RelStep, v) * math.Abs(v)
		}
		if (v+h)-v == 0 {
			h = auto(v)
		}
		if as.Method == Central {
			h = math.Abs(h)
		}
		as.absStep[i] = h
	}
}

// Gradient returns the central difference gradient of fun at x.
func Gradient(fun func(x []float64) float64, x []float64) ([]float64, error) {
	as := ApproxSpec{N: len(x), Object: fun, Method: Central}
	grad := make([]float64, len(x))
	if err := as.Diff(x, grad); err != nil {
		return nil, err
	}
	return grad, nil
}
