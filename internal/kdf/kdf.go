// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package kdf implements the passphrase key derivation strategies used by
// keystore records: scrypt (memory-hard) and PBKDF2-HMAC-SHA256 (CPU-hard).
//
// Params is a closed set of exactly two implementations. Callers select one
// with New or ParseKind; unknown tags are always a configuration error.
package kdf

import (
	"crypto/sha256"
	"fmt"
	"math/bits"

	"github.com/aplane-algo/zilstore/internal/keyerr"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Kind identifies a key derivation function by its canonical record tag.
type Kind string

const (
	Scrypt Kind = "scrypt"
	PBKDF2 Kind = "pbkdf2"
)

// Canonical parameters written into new records.
const (
	DefaultScryptN    = 8192
	DefaultScryptR    = 8
	DefaultScryptP    = 1
	DefaultIterations = 262144
	DefaultDKLen      = 32
	SaltLen           = 32
)

// Upper bounds on record-supplied cost parameters. scrypt needs 128*N*r*p
// bytes of working memory.
const (
	MaxScryptMemory = 1 << 30
	MaxIterations   = 10_000_000
)

// String returns the record tag for the kind
func (k Kind) String() string {
	return string(k)
}

// ParseKind maps a record tag to a Kind.
// There is no fallback: anything other than "scrypt" or "pbkdf2" is rejected.
func ParseKind(tag string) (Kind, error) {
	switch Kind(tag) {
	case Scrypt:
		return Scrypt, nil
	case PBKDF2:
		return PBKDF2, nil
	}
	return "", fmt.Errorf("%w: unsupported kdf %q", keyerr.ErrConfiguration, tag)
}

// Params carries the parameters of one derivation strategy.
type Params interface {
	// Kind returns the strategy tag
	Kind() Kind

	// Salt returns the salt bytes (not a copy)
	Salt() []byte

	// DKLen returns the derived key length in bytes
	DKLen() int

	// Derive runs the KDF. Identical inputs always produce identical output.
	// Caller owns the returned slice and should zero it after use.
	Derive(passphrase []byte) ([]byte, error)

	sealed()
}

// ScryptParams holds memory-hard derivation parameters.
type ScryptParams struct {
	N       int
	R       int
	P       int
	KeyLen  int
	SaltBuf []byte
}

// PBKDF2Params holds CPU-hard derivation parameters (PRF is HMAC-SHA256).
type PBKDF2Params struct {
	C       int
	KeyLen  int
	SaltBuf []byte
}

// DefaultScrypt returns the canonical scrypt parameters: n=8192, r=8, p=1, dklen=32.
func DefaultScrypt(salt []byte) *ScryptParams {
	return &ScryptParams{
		N:       DefaultScryptN,
		R:       DefaultScryptR,
		P:       DefaultScryptP,
		KeyLen:  DefaultDKLen,
		SaltBuf: salt,
	}
}

// DefaultPBKDF2 returns the canonical PBKDF2 parameters: c=262144, dklen=32.
func DefaultPBKDF2(salt []byte) *PBKDF2Params {
	return &PBKDF2Params{
		C:       DefaultIterations,
		KeyLen:  DefaultDKLen,
		SaltBuf: salt,
	}
}

// New returns the canonical parameters for kind with the given salt.
func New(kind Kind, salt []byte) (Params, error) {
	switch kind {
	case Scrypt:
		return DefaultScrypt(salt), nil
	case PBKDF2:
		return DefaultPBKDF2(salt), nil
	}
	return nil, fmt.Errorf("%w: unsupported kdf %q", keyerr.ErrConfiguration, string(kind))
}

func (p *ScryptParams) Kind() Kind   { return Scrypt }
func (p *ScryptParams) Salt() []byte { return p.SaltBuf }
func (p *ScryptParams) DKLen() int   { return p.KeyLen }
func (p *ScryptParams) sealed()      {}

// Validate checks the parameters before any work is done.
// scrypt.Key performs the same checks; doing them here keeps the error kind stable.
func (p *ScryptParams) Validate() error {
	if err := validateCommon(p.KeyLen, p.SaltBuf); err != nil {
		return err
	}
	if p.N <= 1 || bits.OnesCount(uint(p.N)) != 1 {
		return fmt.Errorf("%w: scrypt n must be a power of two greater than 1, got %d", keyerr.ErrConfiguration, p.N)
	}
	if p.R <= 0 || p.P <= 0 {
		return fmt.Errorf("%w: scrypt r and p must be positive (r=%d, p=%d)", keyerr.ErrConfiguration, p.R, p.P)
	}
	if uint64(p.R)*uint64(p.P) >= 1<<30 {
		return fmt.Errorf("%w: scrypt r*p too large (r=%d, p=%d)", keyerr.ErrConfiguration, p.R, p.P)
	}
	// r*p < 2^30 keeps perN within 2^37, so the division cannot overflow
	perN := 128 * uint64(p.R) * uint64(p.P)
	if uint64(p.N) > MaxScryptMemory/perN {
		return fmt.Errorf("%w: scrypt parameters need more than %d bytes of memory (n=%d, r=%d, p=%d)",
			keyerr.ErrConfiguration, MaxScryptMemory, p.N, p.R, p.P)
	}
	return nil
}

// Derive runs scrypt over passphrase and the stored salt.
func (p *ScryptParams) Derive(passphrase []byte) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	dk, err := scrypt.Key(passphrase, p.SaltBuf, p.N, p.R, p.P, p.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: scrypt: %v", keyerr.ErrConfiguration, err)
	}
	return dk, nil
}

func (p *PBKDF2Params) Kind() Kind   { return PBKDF2 }
func (p *PBKDF2Params) Salt() []byte { return p.SaltBuf }
func (p *PBKDF2Params) DKLen() int   { return p.KeyLen }
func (p *PBKDF2Params) sealed()      {}

// Validate checks the parameters before any work is done.
func (p *PBKDF2Params) Validate() error {
	if err := validateCommon(p.KeyLen, p.SaltBuf); err != nil {
		return err
	}
	if p.C < 1 {
		return fmt.Errorf("%w: pbkdf2 iteration count must be positive, got %d", keyerr.ErrConfiguration, p.C)
	}
	if p.C > MaxIterations {
		return fmt.Errorf("%w: pbkdf2 iteration count %d exceeds %d", keyerr.ErrConfiguration, p.C, MaxIterations)
	}
	return nil
}

// Derive runs PBKDF2-HMAC-SHA256 over passphrase and the stored salt.
func (p *PBKDF2Params) Derive(passphrase []byte) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return pbkdf2.Key(passphrase, p.SaltBuf, p.C, p.KeyLen, sha256.New), nil
}

// validateCommon enforces the record invariants shared by both strategies.
// The derived key is split into two 16-byte halves, so only 32 bytes is usable.
func validateCommon(dkLen int, salt []byte) error {
	if dkLen != DefaultDKLen {
		return fmt.Errorf("%w: dklen must be %d, got %d", keyerr.ErrConfiguration, DefaultDKLen, dkLen)
	}
	if len(salt) == 0 {
		return fmt.Errorf("%w: empty salt", keyerr.ErrConfiguration)
	}
	return nil
}

// Compile-time interface checks
var (
	_ Params = (*ScryptParams)(nil)
	_ Params = (*PBKDF2Params)(nil)
)
