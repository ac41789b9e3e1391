// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stoch

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/descent/funcs"
	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/oracle"
)

func problemFor(m Method) Problem {
	p := Problem{Method: m, Epochs: 20, EpochSize: 50, Alpha0: 0.1, Decay: 0.01}
	switch m {
	case ADAGRAD:
		p.Alpha0, p.Decay = 0.5, 0
	case ADADELTA:
		p.Alpha0, p.Decay = 0, 0.95
	}
	return p
}

func TestParseMethod(t *testing.T) {
	require.Equal(t, []string{"sg", "sga", "sia", "ag", "agfr", "aggr", "adagrad", "adadelta"}, Methods())
	m, err := ParseMethod("adagrad")
	require.NoError(t, err)
	require.Equal(t, ADAGRAD, m)
	_, err = ParseMethod("adam")
	require.ErrorIs(t, err, enum.ErrUnknown)
}

func TestProblemNew(t *testing.T) {
	for name, p := range map[string]Problem{
		"method":   {Epochs: 1, EpochSize: 1, Alpha0: 1},
		"epochs":   {Method: SG, EpochSize: 1, Alpha0: 1},
		"size":     {Method: SG, Epochs: 1, Alpha0: 1},
		"alpha":    {Method: SG, Epochs: 1, EpochSize: 1},
		"decay":    {Method: SG, Epochs: 1, EpochSize: 1, Alpha0: 1, Decay: -1},
		"rho":      {Method: ADADELTA, Epochs: 1, EpochSize: 1, Decay: 1},
		"momentum": {Method: SGA, Epochs: 1, EpochSize: 1, Alpha0: 1, Momentum: 1},
		"epsilon":  {Method: ADAGRAD, Epochs: 1, EpochSize: 1, Alpha0: 1, Epsilon: -1},
	} {
		_, err := p.New(nil)
		assert.Error(t, err, name)
	}
	_, err := (&Problem{Method: SGA, Epochs: 1, EpochSize: 1, Alpha0: 1, Momentum: -0.5}).New(nil)
	require.ErrorContains(t, err, "momentum -0.5 must lie in (0, 1)")

	p := Problem{Method: ADADELTA, Epochs: 1, EpochSize: 1, Decay: 0.9}
	opt, err := p.New(nil)
	require.NoError(t, err)
	require.Equal(t, ADADELTA, opt.Method())
	require.Equal(t, 0.9, opt.momentum)
	require.Equal(t, 1e-6, opt.epsilon)
}

func TestMinimize(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	sphere := funcs.Sphere{N: 10}
	for _, id := range Methods() {
		m, _ := ParseMethod(id)
		t.Run(id, func(t *testing.T) {
			p := problemFor(m)
			opt, err := p.New(nil)
			require.NoError(t, err)

			x0 := make([]float64, sphere.N)
			for i := range x0 {
				x0[i] = 2*rng.Float64() - 1
			}
			f0 := sphere.Value(x0)

			epochs := 0
			s, err := opt.Minimize(sphere, x0, func(s *oracle.State) bool {
				epochs++
				require.Equal(t, epochs, s.NumIter)
				require.Equal(t, sphere.Value(s.X), s.F)
				return true
			})
			require.NoError(t, err)
			require.Equal(t, p.Epochs, epochs)
			require.Equal(t, oracle.StopMaxIter, s.Status)
			require.Less(t, s.F, 1e-3*f0)
			require.Equal(t, sphere.Value(s.X), s.F)

			steps := p.Epochs * p.EpochSize
			values := steps + p.Epochs + 1
			if m == AGFR {
				// one objective value per accepted step
				values += steps
			}
			require.Equal(t, steps, s.NumGrad)
			require.Equal(t, values, s.NumValue)
		})
	}
}

func TestSIAReportsMean(t *testing.T) {
	// f(x) = x² from x₀ = 1 with α = 0.25: xₜ = 2⁻ᵗ
	o := funcs.Sphere{N: 1}
	opt, err := (&Problem{Method: SIA, Epochs: 1, EpochSize: 3, Alpha0: 0.25}).New(nil)
	require.NoError(t, err)
	s, err := opt.Minimize(o, []float64{1}, nil)
	require.NoError(t, err)
	require.InDelta(t, (1+0.5+0.25+0.125)/4, s.X[0], 1e-15)
}

func TestRestart(t *testing.T) {
	// f(x) = x² from x₀ = 1 with α = 0.05: the momentum overshoots the
	// minimum at step 11 and both restart rules fire on that step
	run := func(m Method, steps int) (*iterCtx, float64, int) {
		opt, err := (&Problem{Method: m, Epochs: 1, EpochSize: steps, Alpha0: 0.05}).New(nil)
		require.NoError(t, err)
		o := oracle.Count(funcs.Sphere{N: 1})
		x := []float64{1}
		c := newIterCtx(opt, x)
		for i := 0; i < steps; i++ {
			c.step(o, x, i)
		}
		values, _ := o.Calls()
		return c, x[0], values
	}

	ag, _, values := run(AG, 11)
	require.Equal(t, 11, ag.k)
	require.Equal(t, 11, values)
	for _, m := range []Method{AGFR, AGGR} {
		c, _, _ := run(m, 11)
		require.Equal(t, 11, c.k, m.String())
		c, _, _ = run(m, 12)
		require.Zero(t, c.k, m.String())
	}

	_, fr, values := run(AGFR, 60)
	require.Equal(t, 120, values)
	_, gr, _ := run(AGGR, 60)
	_, plain, _ := run(AG, 60)
	require.Less(t, math.Abs(fr), 1e-6)
	require.Less(t, math.Abs(gr), 1e-6)
	require.Greater(t, math.Abs(plain), 1e-5)
}

func TestStatus(t *testing.T) {
	sphere := funcs.Sphere{N: 3}
	x0 := []float64{1, -1, 2}

	opt, err := (&Problem{Method: SG, Epochs: 10, EpochSize: 100, Alpha0: 10}).New(nil)
	require.NoError(t, err)
	s, err := opt.Minimize(sphere, x0, nil)
	require.NoError(t, err)
	require.Equal(t, oracle.StopDiverged, s.Status)
	require.Equal(t, []float64{1, -1, 2}, x0)

	opt, err = (&Problem{Method: AG, Epochs: 10, EpochSize: 10, Alpha0: 0.1}).New(nil)
	require.NoError(t, err)
	s, err = opt.Minimize(sphere, x0, func(s *oracle.State) bool { return s.NumIter < 2 })
	require.NoError(t, err)
	require.Equal(t, oracle.StopUser, s.Status)
	require.Equal(t, 2, s.NumIter)

	_, err = opt.Minimize(sphere, []float64{1}, nil)
	require.ErrorIs(t, err, oracle.ErrDegenerate)
}
