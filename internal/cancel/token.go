// Package cancel provides one-way cooperative cancellation flags with
// parent/child scoping. A playlist run owns a parent token; each item gets a
// fresh child, so cancelling the run is immediately visible to whichever item
// is active without any propagation code.
package cancel

import "sync/atomic"

// Token is a monotonic cancellation flag: once set it never reads unset.
// Observation is cooperative; a step that never polls IsSet runs to
// completion.
type Token struct {
	parent *Token
	set    atomic.Bool
}

// New returns a fresh, unset token with no parent.
func New() *Token {
	return &Token{}
}

// Child returns a fresh token scoped under t. The child reads set when either
// it or any ancestor is set; setting the child does not touch t.
func (t *Token) Child() *Token {
	return &Token{parent: t}
}

// Set marks the token cancelled. Idempotent.
func (t *Token) Set() {
	t.set.Store(true)
}

// IsSet reports whether the token or any of its ancestors is cancelled.
// A nil token is never set.
func (t *Token) IsSet() bool {
	for ; t != nil; t = t.parent {
		if t.set.Load() {
			return true
		}
	}
	return false
}
