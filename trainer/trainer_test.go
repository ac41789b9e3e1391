// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trainer

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/descent/accum"
	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/internal/linear"
	"github.com/curioloop/descent/logger"
	"github.com/curioloop/descent/registry"
)

const (
	nIn  = 3
	nOut = 2
)

func splitData(seed uint64, noise float64) (Data, []float64) {
	rng := rand.New(rand.NewPCG(seed, 17))
	samples, truth := linear.Samples(rng, 400, nIn, nOut, noise)
	return Data{Train: samples[:250], Valid: samples[250:350], Test: samples[350:]}, truth
}

func zeroValue(samples []accum.Sample) float64 {
	var sum float64
	zero := make([]float64, nOut)
	for _, s := range samples {
		sum += linear.Square{}.Value(s.Target, zero)
	}
	return sum / float64(len(samples))
}

func TestNewSolvers(t *testing.T) {
	solvers := NewSolvers()
	ids := solvers.IDs()
	require.Len(t, ids, 20)
	for _, id := range []string{"gd", "cgd", "cgd-dyhs", "lbfgs", "sg", "aggr", "adagrad", "adadelta"} {
		assert.Contains(t, ids, id)
	}

	s, err := solvers.Get("lbfgs")
	require.NoError(t, err)
	require.False(t, s.Stochastic)
	s, err = solvers.Get("adadelta")
	require.NoError(t, err)
	require.True(t, s.Stochastic)
	require.Contains(t, solvers.Help("sia"), "stochastic")
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
solver: cgd-pr
epochs: 50
patience: 4
line_search: {initializer: quadratic, strategy: more-thuente, c1: 0.001, c2: 0.2}
tune: {lambda: true, eps_log: 0.25, parallel: true}
`))
	require.NoError(t, err)
	require.Equal(t, "cgd-pr", cfg.Solver)
	require.Equal(t, 50, cfg.Epochs)
	require.Equal(t, 4, *cfg.Patience)
	require.Equal(t, LineSearchConfig{Initializer: "quadratic", Strategy: "more-thuente", C1: 0.001, C2: 0.2}, cfg.LineSearch)
	require.True(t, cfg.Tune.Lambda)
	require.True(t, cfg.Tune.Parallel)
	require.Equal(t, 0.25, cfg.Tune.EpsLog)

	cfg = cfg.withDefaults()
	require.Equal(t, 1e-6, cfg.Epsilon)
	require.Equal(t, 4, *cfg.Patience)

	_, err = ParseConfig([]byte("solver: sg\nlearning_rate: 0.1\n"))
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	solvers := NewSolvers()

	_, err := New(Config{Solver: "lbfgs", Epochs: 10}, solvers, nil)
	require.NoError(t, err)
	_, err = New(Config{Solver: "newton", Epochs: 10}, solvers, nil)
	require.ErrorIs(t, err, registry.ErrNotFound)
	_, err = New(Config{Solver: "lbfgs", Epochs: 10, LineSearch: LineSearchConfig{Strategy: "golden"}}, solvers, nil)
	require.ErrorIs(t, err, enum.ErrUnknown)
	_, err = New(Config{Solver: "lbfgs", Epochs: 10, LineSearch: LineSearchConfig{C1: 0.5, C2: 0.1}}, solvers, nil)
	require.Error(t, err)

	for _, cfg := range []Config{
		{Epochs: 10},
		{Solver: "sg"},
		{Solver: "sg", Epochs: 10, Lambda: 2},
		{Solver: "sg", Epochs: 10, Threads: -1},
		{Solver: "sg", Epochs: 10, BatchSize: -1},
	} {
		_, err = New(cfg, solvers, nil)
		require.Error(t, err, "%+v", cfg)
	}
}

func TestZeroPatience(t *testing.T) {
	zero := 0
	tr, err := New(Config{Solver: "gd", Epochs: 5, Patience: &zero}, NewSolvers(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, *tr.cfg.Patience)

	tr, err = New(Config{Solver: "gd", Epochs: 5}, NewSolvers(), nil)
	require.NoError(t, err)
	require.Equal(t, defaultPatience, *tr.cfg.Patience)

	negative := -1
	_, err = New(Config{Solver: "gd", Epochs: 5, Patience: &negative}, NewSolvers(), nil)
	require.Error(t, err)

	cfg, err := ParseConfig([]byte("solver: gd\nepochs: 5\npatience: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Patience)
	require.Equal(t, 0, *cfg.withDefaults().Patience)

	r := NewResult(zero)
	require.Equal(t, Better, r.Update([]float64{1}, epochState(1, 2), nil, false))
	require.Equal(t, Overfit, r.Update([]float64{2}, epochState(2, 3), nil, false))
}

func TestRegularizer(t *testing.T) {
	tr, err := New(Config{Solver: "gd", Epochs: 5, Tune: TuneConfig{Lambda: true}}, NewSolvers(), nil)
	require.NoError(t, err)
	require.Equal(t, accum.L2, tr.reg)
	require.Len(t, tr.tunables(10), 1)

	tr, err = New(Config{Solver: "gd", Epochs: 5, Regularizer: "none", Tune: TuneConfig{Lambda: true}}, NewSolvers(), nil)
	require.NoError(t, err)
	require.Equal(t, accum.None, tr.reg)
	require.Empty(t, tr.tunables(10))

	_, err = New(Config{Solver: "gd", Epochs: 5, Regularizer: "l1"}, NewSolvers(), nil)
	require.ErrorIs(t, err, enum.ErrUnknown)

	cfg, err := ParseConfig([]byte("solver: lbfgs\nepochs: 40\nlambda: 0.01\nregularizer: variational\n"))
	require.NoError(t, err)
	tr, err = New(cfg, NewSolvers(), nil)
	require.NoError(t, err)
	require.Equal(t, accum.Variational, tr.reg)

	data, _ := splitData(5, 0.1)
	r, err := tr.Train(linear.New(nIn, nOut), linear.Square{}, data)
	require.NoError(t, err)
	require.NotEqual(t, Diverged, r.Status(), r.String())
	require.Less(t, r.Optimum().Valid.Value, zeroValue(data.Valid)/4, r.String())
}

func TestTrainInvalid(t *testing.T) {
	tr, err := New(Config{Solver: "gd", Epochs: 5}, NewSolvers(), nil)
	require.NoError(t, err)
	data, _ := splitData(1, 0.1)

	_, err = tr.Train(nil, linear.Square{}, data)
	require.Error(t, err)
	_, err = tr.Train(linear.New(nIn, nOut), linear.Square{}, Data{Train: data.Train})
	require.ErrorIs(t, err, accum.ErrNoSamples)
	_, err = tr.Train(linear.New(nIn, nOut), linear.Square{}, Data{Valid: data.Valid})
	require.ErrorIs(t, err, accum.ErrNoSamples)
}

func TestTrainBatch(t *testing.T) {
	data, truth := splitData(2, 0.1)
	data.Test = nil

	var sb strings.Builder
	log := &logger.Logger{Level: logger.LogEval, Msg: &sb}
	tr, err := New(Config{Solver: "lbfgs", Epochs: 100, Epsilon: 1e-5, Threads: 3}, NewSolvers(), log)
	require.NoError(t, err)

	model := linear.New(nIn, nOut)
	r, err := tr.Train(model, linear.Square{}, data)
	require.NoError(t, err)
	require.Equal(t, Solved, r.Status(), r.String())
	require.Zero(t, floatsMax(model.Params()), "prototype model must not be modified")

	require.NotEmpty(t, r.History())
	require.Greater(t, r.OptimumEpoch(), 0)
	require.InDeltaSlice(t, truth, r.OptimumParams(), 0.1)
	require.Less(t, r.Optimum().Valid.Value, 0.05)
	require.True(t, math.IsNaN(r.Optimum().Test.Value))
	require.Equal(t, Hypers{{"lambda", 0}}, r.OptimumConfig())
	require.Less(t, r.ConvergenceSpeed(), 0.0)
	require.Contains(t, sb.String(), "valid=")
}

func TestTrainTuned(t *testing.T) {
	data, _ := splitData(3, 0.1)
	v0 := zeroValue(data.Valid)

	for _, parallel := range []bool{false, true} {
		cfg := Config{
			Solver:    "sg",
			Epochs:    5,
			BatchSize: 16,
			Threads:   2,
			Tune:      TuneConfig{Lambda: true, Alpha0: true, EpsLog: 1, Parallel: parallel},
		}
		tr, err := New(cfg, NewSolvers(), nil)
		require.NoError(t, err)

		r, err := tr.Train(linear.New(nIn, nOut), linear.Square{}, data)
		require.NoError(t, err)
		require.NotEqual(t, Diverged, r.Status(), r.String())
		require.Less(t, r.Optimum().Valid.Value, v0/4, r.String())
		require.False(t, math.IsNaN(r.Optimum().Test.Value))

		config := r.OptimumConfig()
		require.Len(t, config, 4)
		names := make([]string, len(config))
		for i, h := range config {
			names[i] = h.Name
		}
		require.Equal(t, []string{"lambda", "alpha0", "decay", "batch_size"}, names)
		require.Equal(t, 16.0, config[3].Value)
		require.LessOrEqual(t, r.OptimumEpoch(), 5)
	}
}

func TestTrainKeepsTunedOptimum(t *testing.T) {
	data, _ := splitData(4, 0.1)
	cfg := Config{
		Solver:    "sg",
		Epochs:    3,
		BatchSize: 16,
		Threads:   2,
		Tune:      TuneConfig{Lambda: true, Alpha0: true, EpsLog: 1},
	}
	tr, err := New(cfg, NewSolvers(), nil)
	require.NoError(t, err)

	_, tuned, err := tr.tune(linear.New(nIn, nOut), linear.Square{}, data)
	require.NoError(t, err)
	require.NotNil(t, tuned)

	r, err := tr.Train(linear.New(nIn, nOut), linear.Square{}, data)
	require.NoError(t, err)
	require.False(t, tuned.Less(r), "%v\n%v", tuned, r)

	cfg.Tune = TuneConfig{}
	tr, err = New(cfg, NewSolvers(), nil)
	require.NoError(t, err)
	_, tuned, err = tr.tune(linear.New(nIn, nOut), linear.Square{}, data)
	require.NoError(t, err)
	require.Nil(t, tuned)
}

func floatsMax(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
