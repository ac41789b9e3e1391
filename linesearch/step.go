// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/oracle"
)

// step evaluates φ(t) = f(x + t·d) and φ′(t) = g(x + t·d)ᵀd.
type step struct {
	o oracle.Oracle
	s *oracle.State

	f0, dg0 float64 // φ(0), φ′(0)
	t, f, dg float64 // last trial

	x, g   []float64
	trials int
}

func (p *step) init(o oracle.Oracle, s *oracle.State) {
	n := len(s.X)
	if cap(p.x) < n {
		p.x = make([]float64, n)
		p.g = make([]float64, n)
	}
	p.x, p.g = p.x[:n], p.g[:n]
	p.o, p.s = o, s
	p.f0, p.dg0 = s.F, floats.Dot(s.G, s.D)
	p.t, p.f, p.dg = zero, p.f0, p.dg0
	p.trials = 0
}

// reset moves the trial to step t and reports whether φ(t) and φ′(t) are finite.
func (p *step) reset(t float64) bool {
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= zero {
		return false
	}
	floats.AddScaledTo(p.x, p.s.X, t, p.s.D)
	p.t = t
	p.f = p.o.ValueGrad(p.x, p.g)
	p.dg = floats.Dot(p.g, p.s.D)
	p.trials++
	return !math.IsNaN(p.f) && !math.IsInf(p.f, 0) && !math.IsNaN(p.dg) && !math.IsInf(p.dg, 0)
}

func (p *step) armijo(c1 float64) bool {
	return p.f <= p.f0+p.t*c1*p.dg0
}

func (p *step) wolfe(c2 float64) bool {
	return p.dg >= c2*p.dg0
}

func (p *step) strongWolfe(c2 float64) bool {
	return math.Abs(p.dg) <= -c2*p.dg0
}

// commit copies the last trial into the state.
func (p *step) commit() {
	s := p.s
	copy(s.X, p.x)
	copy(s.G, p.g)
	s.F, s.T = p.f, p.t
}
