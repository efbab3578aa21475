// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package address converts between raw, checksummed and bech32 address forms.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/aplane-algo/zilstore/internal/keyerr"
)

// HexLen is the length of a raw address in hex characters
const HexLen = 40

// Normalize strips an optional 0x prefix, checks the address is 40 hex
// characters and returns it lowercased.
func Normalize(addr string) (string, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(s) != HexLen {
		return "", fmt.Errorf("%w: address must be %d hex characters, got %d", keyerr.ErrEncoding, HexLen, len(s))
	}
	s = strings.ToLower(s)
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: address is not hex: %v", keyerr.ErrEncoding, err)
	}
	return s, nil
}

// IsAddress reports whether addr is 40 hex characters, with or without 0x
func IsAddress(addr string) bool {
	_, err := Normalize(addr)
	return err == nil
}

// ToChecksumAddress returns the 0x-prefixed canonical casing of addr.
//
// The address bytes are hashed with SHA-256. Letter i of the hex string is
// upper-cased when bit 255-6i of the hash, read as a big-endian integer, is set.
func ToChecksumAddress(addr string) (string, error) {
	lower, err := Normalize(addr)
	if err != nil {
		return "", err
	}

	raw, _ := hex.DecodeString(lower)
	sum := sha256.Sum256(raw)
	v := new(big.Int).SetBytes(sum[:])

	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && v.Bit(255-6*i) == 1 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out), nil
}

// IsChecksumAddress reports whether addr is already in canonical checksum casing.
// The 0x prefix is optional.
func IsChecksumAddress(addr string) bool {
	want, err := ToChecksumAddress(addr)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(want, "0x") == strings.TrimPrefix(addr, "0x")
}
