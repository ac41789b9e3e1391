// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger provides the leveled writer shared by the solvers, the tuner and the trainer.
package logger

import (
	"fmt"
	"io"
	"os"
)

// Level controls the frequency and type of logger output
type Level int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop Level = -1
	// LogLast print only one line when a run terminates
	LogLast Level = 0
	// LogEval print also f and ‖g‖∞ every `level` iterations (0 < level < 99)
	LogEval Level = 1
	// LogTrace print details of every iteration except n-vectors
	LogTrace Level = 99
	// LogVerbose print details of every iteration including x and g (level > 100)
	LogVerbose Level = 101
)

// Logger handles logging output for the optimizers.
// Note the writers must be thread-safe when shared by concurrent runs.
// A nil *Logger is valid and discards everything.
type Logger struct {
	Level Level
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for tabular per-iteration data.
}

// New creates a logger writing messages to stderr and tables to stdout.
func New(level Level) *Logger {
	return &Logger{Level: level, Msg: os.Stderr, Out: os.Stdout}
}

// Enable reports whether messages of the given level are printed.
func (l *Logger) Enable(level Level) bool {
	return l != nil && l.Level >= level
}

// Every reports whether iteration k should be printed at LogEval granularity.
func (l *Logger) Every(k int) bool {
	if !l.Enable(LogEval) {
		return false
	}
	if l.Level >= LogTrace {
		return true
	}
	return k%int(l.Level) == 0
}

// Log writes a message.
func (l *Logger) Log(format string, a ...any) {
	if l == nil || l.Msg == nil {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// Table writes a row of tabular output.
func (l *Logger) Table(format string, a ...any) {
	if l == nil || l.Out == nil {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Vector writes a labelled vector, six entries per line.
func (l *Logger) Vector(label string, v []float64) {
	l.Log("\n %s = ", label)
	for i, x := range v {
		l.Log("%.2e ", x)
		if (i+1)%6 == 0 {
			l.Log("\n     ")
		}
	}
	l.Log("\n")
}

// FormatNs renders a nanosecond count with a readable unit.
func FormatNs(nanoseconds int64) string {
	switch {
	case nanoseconds >= 1e9: // Convert to seconds
		return fmt.Sprintf("%.2f s", float64(nanoseconds)/1e9)
	case nanoseconds >= 1e6: // Convert to milliseconds
		return fmt.Sprintf("%.2f ms", float64(nanoseconds)/1e6)
	case nanoseconds >= 1e3: // Convert to microseconds
		return fmt.Sprintf("%.2f µs", float64(nanoseconds)/1e3)
	default: // Keep in nanoseconds
		return fmt.Sprintf("%.2f ns", float64(nanoseconds))
	}
}
