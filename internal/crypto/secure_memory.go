// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// ZeroBytes overwrites b with zeros.
// subtle.ConstantTimeCopy keeps the store from being optimised away.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}

// ZeroAll zeroes every slice passed to it. Handy in a single defer.
func ZeroAll(bufs ...[]byte) {
	for _, b := range bufs {
		ZeroBytes(b)
	}
}

// SecureString holds a passphrase (or other secret) in a byte slice that is
// wiped on Destroy. Strings are immutable in Go and cannot be wiped, so
// passphrases stay as bytes from the terminal read until the KDF consumes them.
type SecureString struct {
	mu   sync.RWMutex
	data []byte
}

// NewSecureStringFromBytes copies b into a new SecureString.
// The caller may zero b afterwards.
func NewSecureStringFromBytes(b []byte) *SecureString {
	if b == nil {
		return &SecureString{}
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &SecureString{data: data}
}

// WithBytes runs fn with the secret bytes under a read lock.
// fn must not retain the slice after it returns.
func (s *SecureString) WithBytes(fn func([]byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// Destroy wipes the secret. The SecureString is empty afterwards.
func (s *SecureString) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ZeroBytes(s.data)
	s.data = nil
}

// IsEmpty reports whether the secret has zero length or was destroyed
func (s *SecureString) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data) == 0
}
