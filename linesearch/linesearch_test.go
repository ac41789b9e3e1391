// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/funcs"
	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/oracle"
)

const (
	testC1 = 1e-4
	testC2 = 0.4
)

func allStrategies() []Strategy {
	return []Strategy{BacktrackArmijo, BacktrackWolfe, BacktrackStrongWolfe,
		InterpolationBisection, InterpolationCubic, MoreThuente}
}

// accepted checks the conditions promised by each strategy at the committed state.
func accepted(t *testing.T, strategy Strategy, f0, dg0 float64, s *oracle.State) {
	t.Helper()
	dg := floats.Dot(s.G, s.D)
	require.LessOrEqual(t, s.F, f0+testC1*s.T*dg0, "armijo")
	switch strategy {
	case BacktrackWolfe:
		assert.GreaterOrEqual(t, dg, testC2*dg0, "wolfe")
	case BacktrackStrongWolfe, InterpolationBisection, InterpolationCubic:
		assert.LessOrEqual(t, math.Abs(dg), -testC2*dg0, "strong wolfe")
	}
}

func TestSearchScalar(t *testing.T) {
	for _, fn := range scalarFuncs {
		o := &oracle.Func{N: 1, FG: func(x, g []float64) float64 {
			g[0] = fn.der(x[0])
			return fn.phi(x[0])
		}}
		for _, strategy := range allStrategies() {
			t.Run(fn.name+"/"+strategy.String(), func(t *testing.T) {
				ls, err := New(strategy, testC1, testC2)
				require.NoError(t, err)

				s := oracle.NewState(o, []float64{0})
				s.D[0] = 1
				f0, dg0 := s.F, s.G[0]

				r := ls.Search(o, s, 1)
				require.True(t, r.OK)
				require.Equal(t, r.T, s.T)
				require.Equal(t, r.T, s.X[0])
				require.Positive(t, r.Trials)
				require.InDelta(t, fn.phi(s.X[0]), s.F, 1e-15)
				accepted(t, strategy, f0, dg0, s)
			})
		}
	}
}

func TestSearchFunctions(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, fn := range funcs.All(8, rng) {
		for _, strategy := range allStrategies() {
			t.Run(fn.Name()+"/"+strategy.String(), func(t *testing.T) {
				ls, err := New(strategy, testC1, testC2)
				require.NoError(t, err)

				x0 := make([]float64, fn.Size())
				for i := range x0 {
					x0[i] = rng.Float64()*2 - 1
				}
				s := oracle.NewState(fn, x0)
				floats.ScaleTo(s.D, -1, s.G)
				f0, dg0 := s.F, floats.Dot(s.G, s.D)

				t0 := NewInit(Quadratic).Step(s)
				r := ls.Search(fn, s, t0)
				require.True(t, r.OK)
				require.Less(t, s.F, f0)
				require.InDelta(t, fn.Value(s.X), s.F, 1e-12*math.Max(1, math.Abs(s.F)))
				accepted(t, strategy, f0, dg0, s)
			})
		}
	}
}

func TestSearchAscent(t *testing.T) {
	o := funcs.Sphere{N: 3}
	for _, strategy := range allStrategies() {
		ls, err := New(strategy, testC1, testC2)
		require.NoError(t, err)

		s := oracle.NewState(o, []float64{1, 2, 3})
		copy(s.D, s.G)
		before := s.Clone()

		r := ls.Search(o, s, 1)
		require.False(t, r.OK, strategy.String())
		require.Zero(t, r.Trials)
		require.Equal(t, before, s)
	}
}

func TestNew(t *testing.T) {
	_, err := New(StrategyDefault, testC1, testC2)
	require.Error(t, err)
	_, err = New(BacktrackWolfe, 0, testC2)
	require.Error(t, err)
	_, err = New(BacktrackWolfe, 0.5, 0.4)
	require.Error(t, err)
	_, err = New(MoreThuente, 0.1, 1)
	require.Error(t, err)
	_, err = New(BacktrackArmijo, 0.1, 0)
	require.NoError(t, err)
}

func TestParse(t *testing.T) {
	for _, id := range Strategies() {
		s, err := ParseStrategy(id)
		require.NoError(t, err)
		require.Equal(t, id, s.String())
	}
	for _, id := range Initializers() {
		i, err := ParseInitializer(id)
		require.NoError(t, err)
		require.Equal(t, id, i.String())
	}
	_, err := ParseStrategy("golden-section")
	require.ErrorIs(t, err, enum.ErrUnknown)
	_, err = ParseInitializer("")
	require.ErrorIs(t, err, enum.ErrUnknown)
}

func TestInit(t *testing.T) {
	s := &oracle.State{F: 10, G: []float64{-4, 0}, D: []float64{4, 0}}

	unit := NewInit(Unit)
	require.Equal(t, 1.0, unit.Step(s))

	quad := NewInit(Quadratic)
	require.Equal(t, 0.25, quad.Step(s))
	s.F, s.T = 9, 0.25
	// 1.01·2·(9-10)/(-16)
	require.InDelta(t, 1.01*2/16, quad.Step(s), 1e-15)

	cons := NewInit(Consistent)
	s.F, s.T = 10, 0
	require.Equal(t, 0.25, cons.Step(s))
	s.T = 0.5
	s.D[0] = 2 // φ′(0) = -8
	require.Equal(t, 0.5*(-16)/(-8), cons.Step(s))

	// non-positive or non-finite guesses fall back to the unit step
	s.F = 20
	require.Equal(t, 1.0, quad.Step(s))
}
