// Package memoizer implements the per-token scoped key-value cache used by
// the detector battery: at most one successful compute call per
// (scope, name, args) for the lifetime of the scope, with concurrent callers
// sharing a single in-flight result. A failed compute is not cached.
package memoizer

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memoizer holds one scope per watched token address.
type Memoizer struct {
	mu     sync.Mutex
	scopes map[string]*scope
}

type scope struct {
	group  singleflight.Group
	mu     sync.Mutex
	values map[string]any
}

// New creates an empty memoizer.
func New() *Memoizer {
	return &Memoizer{scopes: make(map[string]*scope)}
}

func (m *Memoizer) scopeFor(token string) *scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scopes[token]
	if !ok {
		sc = &scope{values: make(map[string]any)}
		m.scopes[token] = sc
	}
	return sc
}

// Arg is any primitive value a caller may use to identify a memoized
// computation. Arrays and maps are deliberately not representable here:
// callers pass identifying primitives only, per spec.md §4.B.
type Arg any

// key builds the canonical (name, argument vector) cache key by stringifying
// each argument in order.
func key(name string, args []Arg) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	return strings.Join(parts, "\x1f")
}

// Memo returns the memoized value for (token, name, args), computing it via
// compute at most once for the lifetime of token's scope once compute has
// succeeded. Concurrent callers for the same key share one in-flight
// computation. An error from compute is returned and not stored, so the next
// call for the same key runs compute again.
func Memo[T any](m *Memoizer, token, name string, args []Arg, compute func() (T, error)) (T, error) {
	sc := m.scopeFor(token)
	k := key(name, args)

	sc.mu.Lock()
	if v, ok := sc.values[k]; ok {
		sc.mu.Unlock()
		return v.(T), nil
	}
	sc.mu.Unlock()

	v, err, _ := sc.group.Do(k, func() (any, error) {
		sc.mu.Lock()
		if v, ok := sc.values[k]; ok {
			sc.mu.Unlock()
			return v, nil
		}
		sc.mu.Unlock()

		result, err := compute()
		if err != nil {
			return nil, err
		}
		sc.mu.Lock()
		sc.values[k] = result
		sc.mu.Unlock()
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// DeleteScope drops every memoized entry for token, called on token
// removal per spec.md §4.B.
func (m *Memoizer) DeleteScope(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopes, token)
}
