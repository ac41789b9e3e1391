// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trainer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Measurement is the loss and the mean sample error over one data set.
type Measurement struct {
	Value float64
	Error float64
}

func (m Measurement) String() string {
	return fmt.Sprintf("%.6g/%.6g", m.Value, m.Error)
}

// State is the snapshot recorded after one epoch.
type State struct {
	Epoch   int
	Elapsed time.Duration
	Train   Measurement
	Valid   Measurement
	Test    Measurement
}

// Less orders states by validation value, non-finite values being the worst.
func (s State) Less(o State) bool {
	return finiteOrMax(s.Valid.Value) < finiteOrMax(o.Valid.Value)
}

func finiteOrMax(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.MaxFloat64
	}
	return v
}

const speedEpsilon = 1e-12

// ConvergenceSpeed returns the mean over consecutive states of
// log(train value ratio) per second, negative while the loss decreases.
func ConvergenceSpeed(states []State) float64 {
	if len(states) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(states); i++ {
		prev, curr := states[i-1], states[i]
		ratio := (speedEpsilon + curr.Train.Value) / (speedEpsilon + prev.Train.Value)
		ms := 1 + float64((curr.Elapsed - prev.Elapsed).Milliseconds())
		sum += 1000 / ms * math.Log(ratio)
	}
	return sum / float64(len(states)-1)
}

var stateHeader = []string{
	"epoch", "seconds",
	"train-value", "train-error",
	"valid-value", "valid-error",
	"test-value", "test-error",
}

// WriteStates writes the states as tab-separated values with a header line.
func WriteStates(w io.Writer, states []State) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.Write(stateHeader); err != nil {
		return errors.Wrap(err, "write state header")
	}
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, s := range states {
		row := []string{
			strconv.Itoa(s.Epoch), num(s.Elapsed.Seconds()),
			num(s.Train.Value), num(s.Train.Error),
			num(s.Valid.Value), num(s.Valid.Error),
			num(s.Test.Value), num(s.Test.Error),
		}
		if err := tw.Write(row); err != nil {
			return errors.Wrapf(err, "write state of epoch %d", s.Epoch)
		}
	}
	tw.Flush()
	return errors.Wrap(tw.Error(), "flush states")
}
