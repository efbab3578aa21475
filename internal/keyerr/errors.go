// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keyerr defines the error kinds shared by the key management packages.
//
// Every failure surfaced by kdf, crypto, keytools, address and keystore wraps
// exactly one of these sentinels, so callers classify errors with errors.Is
// instead of matching on message text.
package keyerr

import "errors"

var (
	// ErrConfiguration indicates unsupported or invalid KDF/cipher parameters or tags
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEncoding indicates malformed hex, bech32, JSON or record schema
	ErrEncoding = errors.New("invalid encoding")

	// ErrAuthentication indicates the keystore MAC did not verify.
	// A wrong passphrase and a tampered record are reported identically.
	ErrAuthentication = errors.New("authentication failed")

	// ErrCryptoPrimitive indicates an underlying primitive rejected its input
	// (for example a private key scalar outside the curve order)
	ErrCryptoPrimitive = errors.New("crypto primitive error")
)
