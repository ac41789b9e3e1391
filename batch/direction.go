// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/oracle"
)

const two = 2.0

// iterCtx holds the memory a method carries from one iteration to the next.
type iterCtx struct {
	method  Method
	restart int

	started bool
	since   int // iterations since the last steepest descent step

	px, pg, pd []float64 // previous point, gradient and direction
	y          []float64 // gₖ - gₖ₋₁

	hist history
}

func newIterCtx(method Method, n, m, restart int) *iterCtx {
	c := &iterCtx{
		method:  method,
		restart: restart,
		px:      make([]float64, n),
		pg:      make([]float64, n),
		pd:      make([]float64, n),
		y:       make([]float64, n),
	}
	if method == LBFGS {
		c.hist.init(n, m)
	}
	return c
}

// direction stores the next search direction into s.D.
// The result is always a descent direction: gᵀd < 0 unless g = 0.
func (c *iterCtx) direction(s *oracle.State) (restarted bool) {
	g, d := s.G, s.D

	switch {
	case !c.started || c.method == GD:
		restarted = true
	case c.method == LBFGS:
		restarted = !c.hist.direction(g, d)
	default:
		beta := c.beta(g)
		if c.since >= c.restart || math.IsNaN(beta) || math.IsInf(beta, 0) || beta < 0 {
			restarted = true
		} else {
			// d = -g + β·dₖ₋₁
			floats.ScaleTo(d, beta, c.pd)
			floats.Sub(d, g)
		}
	}

	if !restarted && !(floats.Dot(g, d) < 0) {
		restarted = true
		c.hist.clear()
	}
	if restarted {
		floats.ScaleTo(d, -1, g)
		c.since = 0
	}
	c.since++
	return
}

// remember saves the point the line search starts from.
func (c *iterCtx) remember(s *oracle.State) {
	copy(c.px, s.X)
	copy(c.pg, s.G)
	copy(c.pd, s.D)
	c.started = true
}

// accept records the step just taken by the line search.
func (c *iterCtx) accept(s *oracle.State) {
	if c.method == LBFGS {
		c.hist.push(c.px, s.X, c.pg, s.G)
	}
}

// beta evaluates the conjugate gradient update at the current gradient g.
func (c *iterCtx) beta(g []float64) float64 {
	pg, pd, y := c.pg, c.pd, c.y
	floats.SubTo(y, g, pg)

	gg := floats.Dot(g, g)
	gy := floats.Dot(g, y)
	dy := floats.Dot(pd, y)
	dg := floats.Dot(pd, pg)

	switch c.method {
	case CGD, CGDHS:
		return gy / dy
	case CGDFR:
		return gg / floats.Dot(pg, pg)
	case CGDPR:
		return gy / floats.Dot(pg, pg)
	case CGDCD:
		return gg / -dg
	case CGDLS:
		return -gy / dg
	case CGDDY:
		return gg / dy
	case CGDN:
		yy := floats.Dot(y, y)
		return (gy - two*floats.Dot(pd, g)*yy/dy) / dy
	case CGDDYCD:
		return gg / math.Max(dy, -dg)
	case CGDDYHS:
		return math.Max(0, math.Min(gg/dy, gy/dy))
	}
	return math.NaN()
}
