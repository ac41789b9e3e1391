// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry maps string ids to factories.
//
// A registry is an ordinary value: it is built once at startup and handed to
// whoever needs lookups, there is no package-level instance.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrDuplicate is returned when an id is registered twice.
	ErrDuplicate = errors.New("duplicated identifier")
	// ErrNotFound is returned for an unknown id.
	ErrNotFound = errors.New("unknown identifier")
)

type entry[T any] struct {
	help    string
	factory T
}

// Registry holds the factories of one kind of object. It is safe for concurrent use.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]entry[T]
}

// New creates an empty registry, kind names the objects in error messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]entry[T])}
}

// Register adds factory under id.
func (r *Registry[T]) Register(id, help string, factory T) error {
	if id == "" {
		return errors.Errorf("empty %s identifier", r.kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[id]; dup {
		return errors.Wrapf(ErrDuplicate, "%s <%s>", r.kind, id)
	}
	r.entries[id] = entry[T]{help: help, factory: factory}
	return nil
}

// Get returns the factory registered under id.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return e.factory, errors.Wrapf(ErrNotFound, "invalid %s <%s>, expecting one of [%s]",
			r.kind, id, strings.Join(r.ids(), ", "))
	}
	return e.factory, nil
}

// Help returns the description registered with id.
func (r *Registry[T]) Help(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id].help
}

// IDs returns the registered ids in lexicographic order.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ids()
}

func (r *Registry[T]) ids() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
