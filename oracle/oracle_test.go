// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paraboloid() *Func {
	return &Func{
		N: 2,
		F: func(x []float64) float64 { return x[0]*x[0] + 3*x[1]*x[1] },
		FG: func(x, g []float64) float64 {
			g[0], g[1] = 2*x[0], 6*x[1]
			return x[0]*x[0] + 3*x[1]*x[1]
		},
	}
}

func TestCheck(t *testing.T) {
	assert.True(t, errors.Is(Check(nil, nil), ErrDegenerate))
	assert.True(t, errors.Is(Check(&Func{N: 0}, nil), ErrDegenerate))
	assert.True(t, errors.Is(Check(paraboloid(), []float64{1}), ErrDegenerate))
	assert.NoError(t, Check(paraboloid(), []float64{1, 2}))
}

func TestCounter(t *testing.T) {
	c := Count(paraboloid())
	require.Same(t, c, Count(c))

	x := []float64{1, 1}
	g := make([]float64, 2)
	c.Value(x)
	c.ValueGrad(x, g)
	c.ValueGrad(x, g)

	values, grads := c.Calls()
	assert.Equal(t, 3, values)
	assert.Equal(t, 2, grads)

	s := NewState(c, x)
	assert.Equal(t, 4, s.NumValue)
	assert.Equal(t, 3, s.NumGrad)
	assert.Equal(t, 4.0, s.F)
	assert.Equal(t, []float64{2, 6}, s.G)

	c.Reset()
	values, grads = c.Calls()
	assert.Zero(t, values+grads)
}

func TestNumericalFunc(t *testing.T) {
	f := paraboloid()
	f.FG = nil
	g := make([]float64, 2)
	v := f.ValueGrad([]float64{1, -2}, g)
	assert.Equal(t, 13.0, v)
	assert.InDelta(t, 2.0, g[0], 1e-8)
	assert.InDelta(t, -12.0, g[1], 1e-8)
}

func TestGradAccuracy(t *testing.T) {
	acc, err := GradAccuracy(paraboloid(), []float64{0.3, -1.1})
	require.NoError(t, err)
	assert.Less(t, acc, 1e-8)

	wrong := paraboloid()
	wrong.FG = func(x, g []float64) float64 {
		g[0], g[1] = x[0], x[1]
		return x[0]*x[0] + 3*x[1]*x[1]
	}
	acc, err = GradAccuracy(wrong, []float64{0.3, -1.1})
	require.NoError(t, err)
	assert.Greater(t, acc, 0.1)
}

func TestStateOrder(t *testing.T) {
	a := &State{F: 1}
	b := &State{F: math.NaN()}
	c := &State{F: math.Inf(-1)}
	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
	assert.True(t, Less(a, c))

	s := &State{F: 1, X: []float64{1}, G: []float64{1e-7, -1e-9}}
	assert.True(t, s.Converged(1e-6))
	assert.False(t, s.Converged(1e-8))
	assert.True(t, s.Finite())

	clone := s.Clone()
	clone.X[0] = 5
	assert.Equal(t, 1.0, s.X[0])
}

func TestStatus(t *testing.T) {
	assert.True(t, ConvGradNorm&Converged > 0)
	for _, s := range []Status{StopMaxIter, StopLineSearch, StopDiverged, StopUser} {
		assert.True(t, s&Stopped > 0, s.String())
		assert.False(t, s&Converged > 0, s.String())
	}
	assert.Equal(t, "ABNORMAL_TERMINATION_IN_LNSRCH", StopLineSearch.String())
}
