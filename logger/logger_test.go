// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"bytes"
	"testing"
)

func TestLevels(t *testing.T) {
	var msg, out bytes.Buffer
	l := &Logger{Level: LogEval, Msg: &msg, Out: &out}

	switch {
	case !l.Enable(LogLast) || !l.Enable(LogEval):
		t.Fatal("lower levels must be enabled")
	case l.Enable(LogTrace):
		t.Fatal("trace must be disabled")
	}

	l.Log("f= %d\n", 3)
	l.Table("%4d\n", 7)
	if msg.String() != "f= 3\n" || out.String() != "   7\n" {
		t.Fatalf("unexpected output %q %q", msg.String(), out.String())
	}

	l.Level = 5
	if !l.Every(10) || l.Every(11) {
		t.Fatal("unexpected eval frequency")
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	if l.Enable(LogLast) || l.Every(0) {
		t.Fatal("nil logger must be silent")
	}
	l.Log("ignored %d", 1)
	l.Table("ignored")
}

func TestFormatNs(t *testing.T) {
	cases := map[int64]string{
		12:            "12.00 ns",
		1500:          "1.50 µs",
		2_500_000:     "2.50 ms",
		3_000_000_000: "3.00 s",
	}
	for ns, want := range cases {
		if got := FormatNs(ns); got != want {
			t.Fatalf("FormatNs(%d) = %s, want %s", ns, got, want)
		}
	}
}
