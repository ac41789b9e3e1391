// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package funcs provides test objectives implementing oracle.Oracle.
package funcs

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/descent/oracle"
)

// Function is a named test objective with an advisory domain check.
type Function interface {
	oracle.Oracle
	Name() string
	// Valid reports whether x lies in the domain the function is usually studied on.
	// Solvers never enforce it.
	Valid(x []float64) bool
}

// Sphere 𝒇(x) = ∑ xᵢ²
type Sphere struct{ N int }

func (s Sphere) Name() string              { return "sphere" }
func (s Sphere) Size() int                 { return s.N }
func (s Sphere) Valid(x []float64) bool    { return floats.Norm(x, math.Inf(1)) < 5 }
func (s Sphere) Value(x []float64) float64 { return floats.Dot(x, x) }

func (s Sphere) ValueGrad(x, g []float64) float64 {
	floats.ScaleTo(g, 2, x)
	return floats.Dot(x, x)
}

// Quadratic 𝒇(x) = ½xᵀAx + bᵀx with a symmetric positive definite A.
type Quadratic struct {
	a  *mat.SymDense
	b  *mat.VecDense
	ax *mat.VecDense
}

// NewQuadratic draws a random strictly convex quadratic of dimension n.
// The condition number of A grows with n but stays moderate: A = BBᵀ/n + I.
func NewQuadratic(n int, rng *rand.Rand) *Quadratic {
	bm := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			bm.Set(i, j, rng.NormFloat64())
		}
	}
	a := mat.NewSymDense(n, nil)
	a.SymOuterK(1/float64(n), bm)
	for i := 0; i < n; i++ {
		a.SetSym(i, i, a.At(i, i)+1)
	}
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rng.NormFloat64())
	}
	return &Quadratic{a: a, b: b, ax: mat.NewVecDense(n, nil)}
}

func (q *Quadratic) Name() string           { return "quadratic" }
func (q *Quadratic) Size() int              { return q.b.Len() }
func (q *Quadratic) Valid(x []float64) bool { return oracle.Finite(x) }

func (q *Quadratic) Value(x []float64) float64 {
	xv := mat.NewVecDense(len(x), x)
	q.ax.MulVec(q.a, xv)
	return 0.5*mat.Dot(xv, q.ax) + mat.Dot(q.b, xv)
}

func (q *Quadratic) ValueGrad(x, g []float64) float64 {
	f := q.Value(x)
	mat.NewVecDense(len(g), g).AddVec(q.ax, q.b)
	return f
}

// Solution returns the unique minimizer -A⁻¹b.
func (q *Quadratic) Solution() ([]float64, error) {
	var ch mat.Cholesky
	if !ch.Factorize(q.a) {
		return nil, mat.ErrNotPSD
	}
	x := mat.NewVecDense(q.Size(), nil)
	if err := ch.SolveVecTo(x, q.b); err != nil {
		return nil, err
	}
	x.ScaleVec(-1, x)
	return x.RawVector().Data, nil
}

// Rosenbrock 𝒇(x) = ∑ 100(xᵢ₊₁ - xᵢ²)² + (1 - xᵢ)²
type Rosenbrock struct{ N int }

func (r Rosenbrock) Name() string           { return "rosenbrock" }
func (r Rosenbrock) Size() int              { return r.N }
func (r Rosenbrock) Valid(x []float64) bool { return floats.Norm(x, math.Inf(1)) < 2.4 }

func (r Rosenbrock) Value(x []float64) (f float64) {
	for i := 0; i+1 < len(x); i++ {
		a, b := x[i+1]-x[i]*x[i], 1-x[i]
		f += 100*a*a + b*b
	}
	return
}

func (r Rosenbrock) ValueGrad(x, g []float64) (f float64) {
	for i := range g {
		g[i] = 0
	}
	for i := 0; i+1 < len(x); i++ {
		a, b := x[i+1]-x[i]*x[i], 1-x[i]
		f += 100*a*a + b*b
		g[i] += -400*a*x[i] - 2*b
		g[i+1] += 200 * a
	}
	return
}

// Bohachevsky 𝒇(x,y) = x² + 2y² - 0.3cos(3πx) - 0.4cos(4πy) + 0.7
type Bohachevsky struct{}

func (Bohachevsky) Name() string           { return "bohachevsky" }
func (Bohachevsky) Size() int              { return 2 }
func (Bohachevsky) Valid(x []float64) bool { return floats.Norm(x, math.Inf(1)) < 100 }

func (Bohachevsky) Value(x []float64) float64 {
	return x[0]*x[0] + 2*x[1]*x[1] - 0.3*math.Cos(3*math.Pi*x[0]) - 0.4*math.Cos(4*math.Pi*x[1]) + 0.7
}

func (b Bohachevsky) ValueGrad(x, g []float64) float64 {
	g[0] = 2*x[0] + 0.9*math.Pi*math.Sin(3*math.Pi*x[0])
	g[1] = 4*x[1] + 1.6*math.Pi*math.Sin(4*math.Pi*x[1])
	return b.Value(x)
}

// Zakharov 𝒇(x) = ∑ xᵢ² + (∑ ½ixᵢ)² + (∑ ½ixᵢ)⁴
type Zakharov struct{ N int }

func (z Zakharov) Name() string           { return "zakharov" }
func (z Zakharov) Size() int              { return z.N }
func (z Zakharov) Valid(x []float64) bool { return floats.Norm(x, math.Inf(1)) < 10 }

func (z Zakharov) Value(x []float64) float64 {
	u := z.weighted(x)
	return floats.Dot(x, x) + u*u + u*u*u*u
}

func (z Zakharov) ValueGrad(x, g []float64) float64 {
	u := z.weighted(x)
	du := 2*u + 4*u*u*u
	for i, v := range x {
		g[i] = 2*v + du*0.5*float64(i+1)
	}
	return floats.Dot(x, x) + u*u + u*u*u*u
}

func (z Zakharov) weighted(x []float64) (u float64) {
	for i, v := range x {
		u += 0.5 * float64(i+1) * v
	}
	return
}

// All returns one instance of every test function of (at most) dimension n.
func All(n int, rng *rand.Rand) []Function {
	return []Function{
		Sphere{N: n},
		NewQuadratic(n, rng),
		Rosenbrock{N: n},
		Bohachevsky{},
		Zakharov{N: n},
	}
}
