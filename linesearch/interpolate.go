// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import "math"

const (
	extrapolate = 3.0
	// fraction of the bracket kept clear of both ends by the cubic step
	safeguard = 0.1
)

// interpolate brackets a strong Wolfe step and then zooms into the bracket.
// see "Numerical optimization", Nocedal & Wright, algorithms 3.5 and 3.6.
func (ls *Searcher) interpolate(t float64) bool {
	p := &ls.p
	prev := endpoint{zero, p.f0, p.dg0}

	for i := 0; i < maxBracket; i++ {
		if !p.reset(t) {
			// overshoot into a non-finite region
			t = prev.t + (t-prev.t)/two
			continue
		}
		curr := endpoint{p.t, p.f, p.dg}
		switch {
		case !p.armijo(ls.c1) || (i > 0 && p.f >= prev.f):
			return ls.zoom(prev, curr)
		case p.strongWolfe(ls.c2):
			return true
		case p.dg >= zero:
			return ls.zoom(curr, prev)
		}
		prev = curr
		if t >= maxStep {
			return false
		}
		t = math.Min(t*extrapolate, maxStep)
	}
	return false
}

// zoom narrows the bracket whose lo end satisfies Armijo with the lower value
// and whose derivative points towards hi.
func (ls *Searcher) zoom(lo, hi endpoint) bool {
	p := &ls.p
	for p.trials < maxBracket+maxZoom {
		a, b := math.Min(lo.t, hi.t), math.Max(lo.t, hi.t)
		width := b - a
		if width <= 1e-16*b {
			return false
		}

		t := a + width/two
		if ls.strategy == InterpolationCubic {
			c := cubicMinimizer(lo, hi)
			if c >= a+safeguard*width && c <= b-safeguard*width {
				t = c
			}
		}

		if !p.reset(t) {
			hi = endpoint{t, math.Inf(1), math.NaN()}
			continue
		}
		curr := endpoint{p.t, p.f, p.dg}
		if !p.armijo(ls.c1) || p.f >= lo.f {
			hi = curr
			continue
		}
		if p.strongWolfe(ls.c2) {
			return true
		}
		if p.dg*(hi.t-lo.t) >= zero {
			hi = lo
		}
		lo = curr
	}
	return false
}

// cubicMinimizer returns the minimizer of the cubic interpolating a and b,
// NaN when it does not exist.
func cubicMinimizer(a, b endpoint) float64 {
	d1 := a.g + b.g - three*(a.f-b.f)/(a.t-b.t)
	disc := d1*d1 - a.g*b.g
	if !(disc >= zero) {
		return math.NaN()
	}
	d2 := math.Copysign(math.Sqrt(disc), b.t-a.t)
	return b.t - (b.t-a.t)*(b.g+d2-d1)/(b.g-a.g+two*d2)
}
