// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package enum maps small closed enumerations to and from their string ids.
package enum

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknown is wrapped by every failed Parse.
var ErrUnknown = errors.New("unknown identifier")

// Pair binds an enum value to its string id.
type Pair[T comparable] struct {
	Value T
	ID    string
}

// Table is a bidirectional lookup between enum values and string ids.
// It is immutable once built and safe for concurrent use.
type Table[T comparable] struct {
	kind  string
	names map[T]string
	ids   map[string]T
	order []string
}

// New builds a table for the given kind (used in error messages).
// Duplicated values or ids panic since tables are package-level literals.
func New[T comparable](kind string, pairs ...Pair[T]) *Table[T] {
	t := &Table[T]{
		kind:  kind,
		names: make(map[T]string, len(pairs)),
		ids:   make(map[string]T, len(pairs)),
	}
	for _, p := range pairs {
		if _, dup := t.ids[p.ID]; dup {
			panic("enum: duplicated id " + p.ID)
		}
		if _, dup := t.names[p.Value]; dup {
			panic("enum: duplicated value for " + p.ID)
		}
		t.names[p.Value] = p.ID
		t.ids[p.ID] = p.Value
		t.order = append(t.order, p.ID)
	}
	return t
}

// String returns the id of v, or "????" when v is not part of the table.
func (t *Table[T]) String(v T) string {
	if s, ok := t.names[v]; ok {
		return s
	}
	return "????"
}

// Parse returns the value registered under id.
func (t *Table[T]) Parse(id string) (v T, err error) {
	v, ok := t.ids[strings.TrimSpace(id)]
	if !ok {
		err = errors.Wrapf(ErrUnknown, "invalid %s <%s>, expecting one of [%s]",
			t.kind, id, strings.Join(t.order, ", "))
	}
	return
}

// Valid reports whether v is registered.
func (t *Table[T]) Valid(v T) bool {
	_, ok := t.names[v]
	return ok
}

// IDs lists the ids in registration order.
func (t *Table[T]) IDs() []string {
	return append([]string(nil), t.order...)
}
