// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tune minimizes a black-box function of one positive hyperparameter
// by successive refinement of a grid in log10 space.
//
// Each round evaluates Splits evenly spaced points of [MinLog, MaxLog], then
// recenters the bracket on the best point seen so far with half-width
// (MaxLog-MinLog)/Splits. Rounds stop once the bracket is narrower than EpsLog.
package tune

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/curioloop/descent/logger"
	"github.com/curioloop/descent/pool"
)

const minSplits = 4

// Spec describes the search bracket.
type Spec struct {
	MinLog, MaxLog float64
	// EpsLog is the bracket width at which refinement stops.
	EpsLog float64
	// Splits is the number of grid points per round, raised to 4 when smaller.
	Splits int
	// Observe is called before each round with the bracket it evaluates.
	Observe func(round int, minLog, maxLog float64)
	Logger  *logger.Logger
}

func (s *Spec) check() error {
	switch {
	case math.IsNaN(s.MinLog) || math.IsInf(s.MinLog, 0):
		return errors.Errorf("lower bound %g must be finite", s.MinLog)
	case math.IsNaN(s.MaxLog) || math.IsInf(s.MaxLog, 0):
		return errors.Errorf("upper bound %g must be finite", s.MaxLog)
	case s.MaxLog < s.MinLog:
		return errors.Errorf("empty bracket [%g, %g]", s.MinLog, s.MaxLog)
	case !(s.EpsLog > 0):
		return errors.Errorf("bracket tolerance %g must greater than 0", s.EpsLog)
	}
	return nil
}

// Record is an evaluated grid point.
type Record[R any] struct {
	Result R
	Log    float64
}

// Param returns the hyperparameter 10^Log.
func (r Record[R]) Param() float64 { return math.Pow(10, r.Log) }

// records is kept sorted so that the best record comes first.
type records[R any] struct {
	less func(a, b R) bool
	list []Record[R]
}

// insert places r after every record that is not worse, ties being broken by Log.
func (rs *records[R]) insert(r Record[R]) {
	i := sort.Search(len(rs.list), func(i int) bool {
		o := rs.list[i]
		if rs.less(r.Result, o.Result) {
			return true
		}
		return !rs.less(o.Result, r.Result) && r.Log < o.Log
	})
	rs.list = append(rs.list, Record[R]{})
	copy(rs.list[i+1:], rs.list[i:])
	rs.list[i] = r
}

// ordered ranks NaN last.
func ordered[R constraints.Ordered](a, b R) bool {
	if a != a {
		return false
	}
	if b != b {
		return true
	}
	return a < b
}

// Log10 minimizes op over 10^[MinLog, MaxLog] and returns the best record.
func Log10[R constraints.Ordered](op func(param float64) R, spec Spec) (Record[R], error) {
	return Log10Func(op, ordered[R], spec)
}

// Log10Func is Log10 for results ordered by less.
func Log10Func[R any](op func(param float64) R, less func(a, b R) bool, spec Spec) (Record[R], error) {
	return search(op, less, spec, func(grid []float64, eval func(log float64)) {
		for _, log := range grid {
			eval(log)
		}
	})
}

// Log10Pool is Log10 evaluating the grid points of a round concurrently on p.
// op must be safe for concurrent use.
func Log10Pool[R constraints.Ordered](p *pool.Pool, op func(param float64) R, spec Spec) (Record[R], error) {
	return Log10PoolFunc(p, op, ordered[R], spec)
}

// Log10PoolFunc is Log10Pool for results ordered by less.
func Log10PoolFunc[R any](p *pool.Pool, op func(param float64) R, less func(a, b R) bool, spec Spec) (Record[R], error) {
	if p == nil {
		p = pool.Default()
	}
	return search(op, less, spec, func(grid []float64, eval func(log float64)) {
		p.ForEach(len(grid), func(i int) { eval(grid[i]) })
	})
}

func search[R any](op func(float64) R, less func(a, b R) bool,
	spec Spec, round func(grid []float64, eval func(log float64))) (best Record[R], err error) {

	switch {
	case op == nil:
		return best, errors.New("tuned operator is required")
	case less == nil:
		return best, errors.New("result order is required")
	}
	if err = spec.check(); err != nil {
		return
	}

	splits := max(spec.Splits, minSplits)
	log := spec.Logger
	rs := records[R]{less: less}
	var mu sync.Mutex

	eval := func(l float64) {
		r := Record[R]{Result: op(math.Pow(10, l)), Log: l}
		mu.Lock()
		rs.insert(r)
		mu.Unlock()
	}

	lo, hi := spec.MinLog, spec.MaxLog
	grid := make([]float64, 0, splits)
	for k := 0; ; k++ {
		if spec.Observe != nil {
			spec.Observe(k, lo, hi)
		}

		span := hi - lo
		grid = grid[:0]
		if span == 0 {
			grid = append(grid, lo)
		} else {
			step := span / float64(splits-1)
			for i := 0; i < splits; i++ {
				grid = append(grid, lo+float64(i)*step)
			}
		}
		round(grid, eval)

		if len(rs.list) == 0 {
			return best, errors.New("no candidate was evaluated")
		}
		best = rs.list[0]
		if log.Enable(logger.LogEval) {
			log.Log("tune round %3d: [%9.2e, %9.2e] best param= %9.2e (log10 %+.4f) of %d\n",
				k, lo, hi, best.Param(), best.Log, len(rs.list))
		}

		if !(span > spec.EpsLog) {
			return
		}
		lo, hi = best.Log-span/float64(splits), best.Log+span/float64(splits)
	}
}
