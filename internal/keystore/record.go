// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keyerr"
)

// Version is the only supported record schema version
const Version = 3

// pbkdf2PRF is the only PRF accepted in an optional "prf" field
const pbkdf2PRF = "hmac-sha256"

// Record is a Web3 Secret Storage v3 keystore record.
// JSON field names and order are fixed for interoperability.
type Record struct {
	Address string        `json:"address"`
	ID      string        `json:"id"`
	Version int           `json:"version"`
	Crypto  CryptoSection `json:"crypto"`
}

// CryptoSection holds the cipher, KDF and MAC of a record
type CryptoSection struct {
	Cipher       string        `json:"cipher"`
	CipherText   string        `json:"ciphertext"`
	KDF          string        `json:"kdf"`
	MAC          string        `json:"mac"`
	CipherParams CipherParams  `json:"cipherparams"`
	KDFParams    KDFParamsJSON `json:"kdfparams"`
}

// CipherParams holds the hex-encoded AES-CTR initial counter
type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParamsJSON is the on-disk form of both KDF variants.
// Both n and c are always written; the field the active KDF does not use
// carries its canonical default so existing tooling reads the record unchanged.
type KDFParamsJSON struct {
	N     int    `json:"n"`
	C     int    `json:"c"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
	PRF   string `json:"prf,omitempty"`
}

// Marshal serialises rec as compact JSON.
func Marshal(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", keyerr.ErrEncoding)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal record: %v", keyerr.ErrEncoding, err)
	}
	return data, nil
}

// Parse decodes a record and checks its schema: version, cipher and kdf tag.
// Hex fields are decoded lazily by the engine.
func Parse(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: failed to parse record: %v", keyerr.ErrEncoding, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks the tags of a record without touching key material.
func (r *Record) Validate() error {
	if r.Version != Version {
		return fmt.Errorf("%w: unsupported record version %d", keyerr.ErrConfiguration, r.Version)
	}
	if r.Crypto.Cipher != crypto.CipherName {
		return fmt.Errorf("%w: unsupported cipher %q", keyerr.ErrConfiguration, r.Crypto.Cipher)
	}
	if _, err := kdf.ParseKind(r.Crypto.KDF); err != nil {
		return err
	}
	if prf := r.Crypto.KDFParams.PRF; prf != "" && prf != pbkdf2PRF {
		return fmt.Errorf("%w: unsupported prf %q", keyerr.ErrConfiguration, prf)
	}
	return nil
}

// KDFParams rebuilds the derivation parameters stored in the record.
func (r *Record) KDFParams() (kdf.Params, error) {
	kind, err := kdf.ParseKind(r.Crypto.KDF)
	if err != nil {
		return nil, err
	}
	salt, err := decodeHex("salt", r.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, err
	}

	p := r.Crypto.KDFParams
	switch kind {
	case kdf.Scrypt:
		return &kdf.ScryptParams{N: p.N, R: p.R, P: p.P, KeyLen: p.DKLen, SaltBuf: salt}, nil
	case kdf.PBKDF2:
		return &kdf.PBKDF2Params{C: p.C, KeyLen: p.DKLen, SaltBuf: salt}, nil
	}
	return nil, fmt.Errorf("%w: unsupported kdf %q", keyerr.ErrConfiguration, r.Crypto.KDF)
}

// encodeKDFParams is the inverse of Record.KDFParams.
func encodeKDFParams(p kdf.Params) (KDFParamsJSON, error) {
	out := KDFParamsJSON{
		N:     kdf.DefaultScryptN,
		C:     kdf.DefaultIterations,
		R:     kdf.DefaultScryptR,
		P:     kdf.DefaultScryptP,
		DKLen: p.DKLen(),
		Salt:  hex.EncodeToString(p.Salt()),
	}
	switch v := p.(type) {
	case *kdf.ScryptParams:
		out.N, out.R, out.P = v.N, v.R, v.P
	case *kdf.PBKDF2Params:
		out.C = v.C
	default:
		return KDFParamsJSON{}, fmt.Errorf("%w: unsupported kdf %q", keyerr.ErrConfiguration, p.Kind())
	}
	return out, nil
}

// decodeHex accepts upper or lower case hex
func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid hex", keyerr.ErrEncoding, field)
	}
	return b, nil
}
