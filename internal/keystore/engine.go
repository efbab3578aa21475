// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keyerr"
	"github.com/aplane-algo/zilstore/internal/keytools"
	"github.com/aplane-algo/zilstore/internal/util"

	"github.com/google/uuid"
)

// Engine encrypts and decrypts keystore records.
//
// An Engine holds no per-call state and may be shared between goroutines as
// long as its random source is safe for concurrent use (the default is).
type Engine struct {
	random     io.Reader
	scryptN    int
	scryptR    int
	scryptP    int
	iterations int
}

// Option configures an Engine
type Option func(*Engine)

// WithRandom replaces the CSPRNG used for IVs, salts and record ids.
// Reads happen in a fixed order: iv (16 bytes), salt (32), id (16).
func WithRandom(r io.Reader) Option {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithScrypt overrides the scrypt cost used for new records
func WithScrypt(n, r, p int) Option {
	return func(e *Engine) {
		e.scryptN, e.scryptR, e.scryptP = n, r, p
	}
}

// WithPBKDF2Iterations overrides the PBKDF2 iteration count used for new records
func WithPBKDF2Iterations(c int) Option {
	return func(e *Engine) {
		e.iterations = c
	}
}

// NewEngine returns an Engine with canonical KDF parameters and the system CSPRNG.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		random:     crypto.DefaultRandom,
		scryptN:    kdf.DefaultScryptN,
		scryptR:    kdf.DefaultScryptR,
		scryptP:    kdf.DefaultScryptP,
		iterations: kdf.DefaultIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// params builds the derivation parameters for a new record
func (e *Engine) params(kind kdf.Kind, salt []byte) (kdf.Params, error) {
	switch kind {
	case kdf.Scrypt:
		p := kdf.DefaultScrypt(salt)
		p.N, p.R, p.P = e.scryptN, e.scryptR, e.scryptP
		return p, p.Validate()
	case kdf.PBKDF2:
		p := kdf.DefaultPBKDF2(salt)
		p.C = e.iterations
		return p, p.Validate()
	}
	return nil, fmt.Errorf("%w: unsupported kdf %q", keyerr.ErrConfiguration, string(kind))
}

// Encrypt seals privateKey under passphrase. Every call draws a fresh IV,
// salt and id, so two records for the same key never match.
// Nothing is returned unless every step succeeds.
func (e *Engine) Encrypt(privateKey, passphrase []byte, kind kdf.Kind) (*Record, error) {
	if _, err := kdf.ParseKind(string(kind)); err != nil {
		return nil, err
	}

	address, err := keytools.AddressFromPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	iv, err := crypto.RandomBytes(e.random, crypto.IVLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keyerr.ErrCryptoPrimitive, err)
	}
	salt, err := crypto.RandomBytes(e.random, kdf.SaltLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keyerr.ErrCryptoPrimitive, err)
	}

	params, err := e.params(kind, salt)
	if err != nil {
		return nil, err
	}
	derivedKey, err := params.Derive(passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(derivedKey)

	cipherText, err := crypto.XORKeyStreamAES128CTR(derivedKey[:crypto.EncKeyLen], iv, privateKey)
	if err != nil {
		return nil, err
	}
	mac, err := crypto.ComputeMAC(derivedKey, cipherText, iv)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandomFromReader(e.random)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate record id: %v", keyerr.ErrCryptoPrimitive, err)
	}

	kdfParams, err := encodeKDFParams(params)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Address: address,
		ID:      id.String(),
		Version: Version,
		Crypto: CryptoSection{
			Cipher:       crypto.CipherName,
			CipherText:   hex.EncodeToString(cipherText),
			KDF:          string(kind),
			MAC:          hex.EncodeToString(mac),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			KDFParams:    kdfParams,
		},
	}
	util.Debug("encrypted keystore record", "address", rec.Address, "id", rec.ID, "kdf", rec.Crypto.KDF)
	return rec, nil
}

// EncryptJSON is Encrypt followed by Marshal.
func (e *Engine) EncryptJSON(privateKey, passphrase []byte, kind kdf.Kind) ([]byte, error) {
	rec, err := e.Encrypt(privateKey, passphrase, kind)
	if err != nil {
		return nil, err
	}
	return Marshal(rec)
}

// Decrypt recovers the private key from rec.
//
// The MAC is checked before any plaintext is produced. A wrong passphrase, a
// modified ciphertext and a modified or malformed MAC all return
// keyerr.ErrAuthentication with the same message.
// The caller owns the returned key and should zero it after use.
func (e *Engine) Decrypt(rec *Record, passphrase []byte) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", keyerr.ErrEncoding)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	params, err := rec.KDFParams()
	if err != nil {
		return nil, err
	}
	iv, err := decodeHex("iv", rec.Crypto.CipherParams.IV)
	if err != nil {
		return nil, err
	}
	if len(iv) != crypto.IVLen {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", keyerr.ErrConfiguration, crypto.IVLen, len(iv))
	}
	cipherText, err := decodeHex("ciphertext", rec.Crypto.CipherText)
	if err != nil {
		return nil, err
	}
	expectedMAC, err := hex.DecodeString(rec.Crypto.MAC)
	if err != nil {
		expectedMAC = nil // fails VerifyMAC like any other wrong tag
	}

	derivedKey, err := params.Derive(passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(derivedKey)

	if err := crypto.VerifyMAC(derivedKey, cipherText, iv, expectedMAC); err != nil {
		util.Debug("keystore record rejected", "id", rec.ID)
		return nil, err
	}

	privateKey, err := crypto.XORKeyStreamAES128CTR(derivedKey[:crypto.EncKeyLen], iv, cipherText)
	if err != nil {
		return nil, err
	}

	address, err := keytools.AddressFromPrivateKey(privateKey)
	if err != nil {
		crypto.ZeroBytes(privateKey)
		return nil, err
	}
	if rec.Address != "" && !equalFoldHex(rec.Address, address) {
		util.Debug("keystore address field does not match key", "recorded", rec.Address, "derived", address)
	}
	return privateKey, nil
}

// DecryptJSON parses data and decrypts it.
func (e *Engine) DecryptJSON(data, passphrase []byte) ([]byte, error) {
	rec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return e.Decrypt(rec, passphrase)
}

func equalFoldHex(a, b string) bool {
	na, err1 := hex.DecodeString(trimHexPrefix(a))
	nb, err2 := hex.DecodeString(trimHexPrefix(b))
	return err1 == nil && err2 == nil && string(na) == string(nb)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
