// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linear provides an affine model and a square loss
// used to exercise the accumulator and the trainer.
package linear

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/descent/accum"
)

// Model computes y = W·x + b with W of shape out×in.
type Model struct {
	in, out int
	params  []float64 // W row-major followed by b
	input   []float64 // last input, consumed by Gradient
	output  []float64
	grad    []float64
}

// New creates a zero model.
func New(in, out int) *Model {
	return &Model{
		in: in, out: out,
		params: make([]float64, in*out+out),
		output: make([]float64, out),
		grad:   make([]float64, in*out+out),
	}
}

func (m *Model) Size() int             { return len(m.params) }
func (m *Model) Params() []float64     { return m.params }
func (m *Model) SetParams(p []float64) { copy(m.params, p) }

func (m *Model) weights() *mat.Dense { return mat.NewDense(m.out, m.in, m.params[:m.in*m.out]) }

func (m *Model) Output(input []float64) []float64 {
	m.input = input
	y := mat.NewVecDense(m.out, m.output)
	y.MulVec(m.weights(), mat.NewVecDense(m.in, input))
	floats.Add(m.output, m.params[m.in*m.out:])
	return m.output
}

// Gradient returns the parameter gradient for the last Output call.
func (m *Model) Gradient(outputGrad []float64) []float64 {
	dw := mat.NewDense(m.out, m.in, m.grad[:m.in*m.out])
	dw.Outer(1, mat.NewVecDense(m.out, outputGrad), mat.NewVecDense(m.in, m.input))
	copy(m.grad[m.in*m.out:], outputGrad)
	return m.grad
}

func (m *Model) Clone() accum.Model {
	c := New(m.in, m.out)
	c.SetParams(m.params)
	return c
}

// Square is the loss ½‖score - target‖² with the error ‖score - target‖∞.
type Square struct{}

func (Square) Value(target, score []float64) float64 {
	d := floats.Distance(score, target, 2)
	return d * d / 2
}

func (Square) Error(target, score []float64) float64 {
	return floats.Distance(score, target, math.Inf(1))
}

func (Square) Gradient(target, score []float64) []float64 {
	g := make([]float64, len(score))
	floats.SubTo(g, score, target)
	return g
}

// Samples draws n noisy observations of a random affine map.
// The returned truth holds the parameters used to generate them.
func Samples(rng *rand.Rand, n, in, out int, noise float64) (samples []accum.Sample, truth []float64) {
	gen := New(in, out)
	for i := range gen.params {
		gen.params[i] = rng.NormFloat64()
	}
	for i := 0; i < n; i++ {
		x := make([]float64, in)
		for j := range x {
			x[j] = rng.NormFloat64()
		}
		y := append([]float64(nil), gen.Output(x)...)
		for j := range y {
			y[j] += noise * rng.NormFloat64()
		}
		samples = append(samples, accum.Sample{Input: x, Target: y})
	}
	return samples, gen.params
}
