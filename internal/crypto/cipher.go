// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/aplane-algo/zilstore/internal/keyerr"
)

const (
	// CipherName is the record tag of the only supported symmetric cipher.
	// It is also mixed into the MAC so a record cannot be re-labelled with another cipher.
	CipherName = "aes-128-ctr"

	// IVLen is the AES block size
	IVLen = aes.BlockSize

	// EncKeyLen is the length of the encryption half of the derived key
	EncKeyLen = 16

	// DerivedKeyLen is the full derived key length (encryption half + MAC half)
	DerivedKeyLen = 32

	// MACLen is the HMAC-SHA256 output length
	MACLen = sha256.Size
)

// XORKeyStreamAES128CTR applies AES-128 in counter mode to data and returns a
// new slice of the same length. The counter is the full 16-byte IV incremented
// as a big-endian integer. Applying it twice with the same key and IV returns
// the original data.
func XORKeyStreamAES128CTR(key, iv, data []byte) ([]byte, error) {
	if len(key) != EncKeyLen {
		return nil, fmt.Errorf("%w: aes-128 key must be %d bytes, got %d", keyerr.ErrConfiguration, EncKeyLen, len(key))
	}
	if len(iv) != IVLen {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", keyerr.ErrConfiguration, IVLen, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", keyerr.ErrCryptoPrimitive, err)
	}

	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}

// ComputeMAC returns HMAC-SHA256(derivedKey, derivedKey[16:32] || cipherText || iv || CipherName).
func ComputeMAC(derivedKey, cipherText, iv []byte) ([]byte, error) {
	if len(derivedKey) != DerivedKeyLen {
		return nil, fmt.Errorf("%w: derived key must be %d bytes, got %d", keyerr.ErrConfiguration, DerivedKeyLen, len(derivedKey))
	}

	m := hmac.New(sha256.New, derivedKey)
	m.Write(derivedKey[EncKeyLen:DerivedKeyLen])
	m.Write(cipherText)
	m.Write(iv)
	m.Write([]byte(CipherName))
	return m.Sum(nil), nil
}

// VerifyMAC recomputes the MAC and compares it with expected in constant time.
// Any mismatch, including a wrong-length expected tag, is an authentication failure.
func VerifyMAC(derivedKey, cipherText, iv, expected []byte) error {
	actual, err := ComputeMAC(derivedKey, cipherText, iv)
	if err != nil {
		return err
	}
	if !hmac.Equal(actual, expected) {
		return fmt.Errorf("%w: mac mismatch", keyerr.ErrAuthentication)
	}
	return nil
}
