// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// RandomSource supplies the bytes for key generation, salts, IVs and record ids.
// Production code uses DefaultRandom; tests substitute a deterministic reader.
// Implementations must be safe for concurrent use if shared between goroutines.
type RandomSource = io.Reader

// DefaultRandom is the operating system CSPRNG
var DefaultRandom RandomSource = rand.Reader

// RandomBytes reads exactly n bytes from r.
// A nil r falls back to DefaultRandom.
func RandomBytes(r RandomSource, n int) ([]byte, error) {
	if r == nil {
		r = DefaultRandom
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}
