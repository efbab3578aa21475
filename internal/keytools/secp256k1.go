// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keytools derives public keys and addresses from secp256k1 private keys.
package keytools

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/keyerr"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	PrivateKeyLen            = 32
	CompressedPublicKeyLen   = 33
	UncompressedPublicKeyLen = 65
	AddressLen               = 20
	AddressHexLen            = 2 * AddressLen
)

// GeneratePrivateKey draws 32-byte candidates from r until one is a valid
// scalar. A nil r uses the system CSPRNG.
func GeneratePrivateKey(r io.Reader) ([]byte, error) {
	for {
		candidate, err := crypto.RandomBytes(r, PrivateKeyLen)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to generate private key: %v", keyerr.ErrCryptoPrimitive, err)
		}
		if VerifyPrivateKey(candidate) {
			return candidate, nil
		}
		crypto.ZeroBytes(candidate)
	}
}

// VerifyPrivateKey reports whether priv is a 32-byte scalar in [1, n-1]
func VerifyPrivateKey(priv []byte) bool {
	_, err := parsePrivateKey(priv)
	return err == nil
}

// PublicKeyFromPrivateKey returns the SEC1 encoding of the public key.
func PublicKeyFromPrivateKey(priv []byte, compressed bool) ([]byte, error) {
	key, err := parsePrivateKey(priv)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	if compressed {
		return key.PubKey().SerializeCompressed(), nil
	}
	return key.PubKey().SerializeUncompressed(), nil
}

// AddressFromPublicKey hashes an encoded public key and keeps the last 20 bytes.
// Returns lowercase hex without 0x.
func AddressFromPublicKey(pub []byte) (string, error) {
	switch {
	case len(pub) == CompressedPublicKeyLen && (pub[0] == 0x02 || pub[0] == 0x03):
	case len(pub) == UncompressedPublicKeyLen && pub[0] == 0x04:
	default:
		return "", fmt.Errorf("%w: malformed public key (%d bytes)", keyerr.ErrEncoding, len(pub))
	}
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[len(sum)-AddressLen:]), nil
}

// AddressFromPrivateKey derives the address of the compressed public key of priv.
func AddressFromPrivateKey(priv []byte) (string, error) {
	pub, err := PublicKeyFromPrivateKey(priv, true)
	if err != nil {
		return "", err
	}
	return AddressFromPublicKey(pub)
}

// parsePrivateKey rejects zero and out-of-range scalars instead of reducing them mod n.
func parsePrivateKey(priv []byte) (*secp256k1.PrivateKey, error) {
	if len(priv) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", keyerr.ErrCryptoPrimitive, PrivateKeyLen, len(priv))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(priv); overflow {
		scalar.Zero()
		return nil, fmt.Errorf("%w: private key is not below the curve order", keyerr.ErrCryptoPrimitive)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: private key is zero", keyerr.ErrCryptoPrimitive)
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}
