// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import "math"

const (
	decrement = 0.5
	increment = 2.1
)

// backtrack shrinks the step until the Armijo condition holds.
// Curvature-aware variants also grow it while the step is too short,
// keeping the bracket [lo, hi] of steps known to be too short or too long.
func (ls *Searcher) backtrack(t float64) bool {
	p := &ls.p
	lo, hi := zero, math.Inf(1)

	for p.trials < maxBacktrack {
		if !p.reset(t) || !p.armijo(ls.c1) {
			hi = t
		} else {
			switch ls.strategy {
			case BacktrackArmijo:
				return true
			case BacktrackWolfe:
				if p.wolfe(ls.c2) {
					return true
				}
				lo = t
			case BacktrackStrongWolfe:
				if p.strongWolfe(ls.c2) {
					return true
				}
				if p.dg < zero {
					lo = t
				} else {
					hi = t
				}
			}
		}

		switch {
		case math.IsInf(hi, 1):
			t = math.Min(t*increment, maxStep)
		case lo == zero:
			t *= decrement
		default:
			t = lo + (hi-lo)/two
		}
		if t <= zero || t == lo || t == hi {
			break
		}
	}
	return false
}
