// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package address

import (
	"encoding/hex"
	"fmt"

	"github.com/aplane-algo/zilstore/internal/keyerr"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// HRP is the human-readable prefix of every bech32 address on this network
const HRP = "zil"

// FromBech32 decodes a zil1... address and returns the raw address as lowercase hex.
// The prefix must be HRP and the checksum must be plain bech32 (not bech32m).
func FromBech32(s string) (string, error) {
	hrp, data, version, err := bech32.DecodeGeneric(s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid bech32 address: %v", keyerr.ErrEncoding, err)
	}
	if version != bech32.Version0 {
		return "", fmt.Errorf("%w: bech32m checksum not accepted", keyerr.ErrEncoding)
	}
	if hrp != HRP {
		return "", fmt.Errorf("%w: expected prefix %q, got %q", keyerr.ErrEncoding, HRP, hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: invalid bech32 payload: %v", keyerr.ErrEncoding, err)
	}
	if len(raw) != HexLen/2 {
		return "", fmt.Errorf("%w: bech32 payload is %d bytes, expected %d", keyerr.ErrEncoding, len(raw), HexLen/2)
	}
	return hex.EncodeToString(raw), nil
}

// ToBech32 encodes a raw hex address (0x optional, any case) as zil1...
func ToBech32(addr string) (string, error) {
	lower, err := Normalize(addr)
	if err != nil {
		return "", err
	}
	raw, _ := hex.DecodeString(lower)

	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", keyerr.ErrEncoding, err)
	}
	out, err := bech32.Encode(HRP, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", keyerr.ErrEncoding, err)
	}
	return out, nil
}

// IsBech32 reports whether s decodes as a zil1... address
func IsBech32(s string) bool {
	_, err := FromBech32(s)
	return err == nil
}
