/*
Package secret provides a bounded-exposure, zero-on-destroy container for
sensitive bytes: SSH private keys, TLS private keys, and anything else that
crosses the boundary between the Brain and a manager that must eventually
write it to disk.

A Secret has three guarantees: it cannot be rendered through fmt or a JSON
encoder (it always redacts to a fixed sentinel); the only way to read the
bytes is a short-lived callback that receives a read-only view; and once
destroyed — explicitly via Destroy, or implicitly when the garbage collector
finalizes an abandoned value — the backing array is overwritten with zeroes
before it is released.

Go strings are immutable, so there is no safe way to zero a string's backing
array. Secret therefore only accepts []byte, and takes ownership of the slice
passed to it: callers must not retain or reuse that slice afterward.
*/
package secret

import (
	"runtime"
	"sync"
)

const redacted = "[REDACTED]"

// Secret is an owned container for sensitive bytes.
type Secret struct {
	mu        sync.Mutex
	bytes     []byte
	destroyed bool
}

// New takes ownership of b and wraps it. The caller must not read, write, or
// retain b after this call; use Use to access the bytes instead.
func New(b []byte) *Secret {
	s := &Secret{bytes: b}
	runtime.SetFinalizer(s, (*Secret).Destroy)
	return s
}

// Use invokes fn with a read-only view of the secret's bytes. The view is
// only valid for the duration of the call; fn must not retain the slice it
// is given. Returns an error if the secret has already been destroyed.
func (s *Secret) Use(fn func([]byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return errDestroyed
	}
	return fn(s.bytes)
}

// Len reports the length of the wrapped secret without exposing its bytes.
func (s *Secret) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bytes)
}

// Destroy zeroes the backing bytes and marks the secret unusable. Safe to
// call more than once and safe to call from a finalizer.
func (s *Secret) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	for i := range s.bytes {
		s.bytes[i] = 0
	}
	s.bytes = nil
	s.destroyed = true
	runtime.SetFinalizer(s, nil)
}

// String implements fmt.Stringer, redacting the secret in any diagnostic or
// log output that formats the value with %s or %v.
func (s *Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer, redacting the secret under %#v too.
func (s *Secret) GoString() string {
	return redacted
}

// MarshalJSON redacts the secret if it is ever accidentally marshaled.
func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

type destroyedError struct{}

func (destroyedError) Error() string { return "secret: use of destroyed secret" }

var errDestroyed error = destroyedError{}
