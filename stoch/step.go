// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stoch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/oracle"
)

// iterCtx holds the per-run buffers of an update rule.
type iterCtx struct {
	*Optimizer

	g     []float64 // sampled gradient
	y     []float64 // AG extrapolation point
	prev  []float64 // AG previous iterate
	avg   []float64 // SGA gradient average, SIA iterate average
	acc   []float64 // ADAGRAD / ADADELTA squared gradient accumulator
	accDx []float64 // ADADELTA squared update accumulator

	k     int     // AG iterations since the last restart
	fPrev float64 // AGFR objective value at the previous iterate
}

func newIterCtx(opt *Optimizer, x0 []float64) *iterCtx {
	n := len(x0)
	c := &iterCtx{Optimizer: opt, g: make([]float64, n), fPrev: math.Inf(1)}
	switch {
	case opt.method.accelerated():
		c.y = make([]float64, n)
		c.prev = append([]float64(nil), x0...)
	case opt.method == SGA:
		c.avg = make([]float64, n)
	case opt.method == SIA:
		c.avg = append([]float64(nil), x0...)
	case opt.method == ADAGRAD:
		c.acc = make([]float64, n)
	case opt.method == ADADELTA:
		c.acc = make([]float64, n)
		c.accDx = make([]float64, n)
	}
	return c
}

// alpha is the decaying learning rate αₜ = α₀/(1 + decay·t).
func (c *iterCtx) alpha(t int) float64 {
	return c.alpha0 / (1 + c.decay*float64(t))
}

// step samples the oracle and updates x in place, t is the global step counter.
// It returns the sampled value.
func (c *iterCtx) step(o oracle.Oracle, x []float64, t int) (f float64) {
	g := c.g

	switch c.method {
	case SG:
		f = o.ValueGrad(x, g)
		floats.AddScaled(x, -c.alpha(t), g)

	case SGA:
		f = o.ValueGrad(x, g)
		// ḡ ← β·ḡ + (1-β)·g with an unbiased start
		beta := c.momentum
		if t == 0 {
			beta = 0
		}
		floats.Scale(beta, c.avg)
		floats.AddScaled(c.avg, 1-beta, g)
		floats.AddScaled(x, -c.alpha(t), c.avg)

	case SIA:
		f = o.ValueGrad(x, g)
		floats.AddScaled(x, -c.alpha(t), g)
		// x̄ ← x̄ + (x - x̄)/(t+2), x₀ being the first sample of the mean
		w := 1 / float64(t+2)
		floats.Scale(1-w, c.avg)
		floats.AddScaled(c.avg, w, x)

	case AG, AGFR, AGGR:
		// y = x + μ(x - xₖ₋₁) with μ = (k-1)/(k+2)
		mu := float64(c.k-1) / float64(c.k+2)
		if c.k == 0 {
			mu = 0
		}
		floats.SubTo(c.y, x, c.prev)
		floats.Scale(mu, c.y)
		floats.Add(c.y, x)
		f = o.ValueGrad(c.y, g)

		copy(c.prev, x)
		floats.AddScaledTo(x, c.y, -c.alpha(t), g)

		restart := false
		switch c.method {
		case AGFR:
			// the objective increased along the accepted step
			fx := o.Value(x)
			restart = fx > c.fPrev
			c.fPrev = fx
		case AGGR:
			// gᵀ(xₖ₊₁ - xₖ) > 0: the step points uphill
			floats.SubTo(c.y, x, c.prev)
			restart = floats.Dot(g, c.y) > 0
		}
		c.k++
		if restart {
			c.k = 0
		}

	case ADAGRAD:
		f = o.ValueGrad(x, g)
		for i, gi := range g {
			c.acc[i] += gi * gi
			x[i] -= c.alpha0 * gi / (math.Sqrt(c.acc[i]) + c.epsilon)
		}

	case ADADELTA:
		f = o.ValueGrad(x, g)
		rho := c.decay
		for i, gi := range g {
			c.acc[i] = rho*c.acc[i] + (1-rho)*gi*gi
			dx := -math.Sqrt(c.accDx[i]+c.epsilon) / math.Sqrt(c.acc[i]+c.epsilon) * gi
			c.accDx[i] = rho*c.accDx[i] + (1-rho)*dx*dx
			x[i] += dx
		}
	}
	return
}

// report returns the point representing the run after the current step.
func (c *iterCtx) report(x []float64) []float64 {
	if c.method == SIA {
		return c.avg
	}
	return x
}
