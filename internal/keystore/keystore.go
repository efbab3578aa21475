// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keystore encrypts private keys into Web3 Secret Storage (version 3)
// records and stores those records on disk.
//
// Engine turns a private key and passphrase into a Record and back. Dir is a
// directory of <address>.json records. Session caches a passphrase so several
// records can be unlocked with one prompt.
package keystore

import (
	"context"
	"errors"
	"time"
)

// Common keystore errors
var (
	// ErrKeyNotFound indicates the requested key does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists indicates a key already exists at the address
	ErrKeyExists = errors.New("key already exists")
)

// KeyMetadata contains non-sensitive information about a stored record
type KeyMetadata struct {
	// Address is the lowercase hex address recorded at encryption time
	Address string

	// ID is the record's random uuid
	ID string

	// KDF is the record's key derivation tag ("scrypt", "pbkdf2")
	KDF string

	// ModifiedAt is the file modification time
	ModifiedAt time.Time

	// FilePath is the path to the record file
	FilePath string
}

// Store abstracts persistence of encrypted records.
//
// Implementations must be safe for concurrent use. Records are immutable:
// a Store never rewrites an existing record in place.
type Store interface {
	// List returns metadata for all records without decrypting anything.
	List(ctx context.Context) ([]KeyMetadata, error)

	// Load returns the record for address.
	// Returns ErrKeyNotFound if there is none.
	Load(ctx context.Context, address string) (*Record, error)

	// Save writes a new record. Returns ErrKeyExists if the address is taken.
	Save(ctx context.Context, rec *Record) error

	// Delete removes a record.
	// Returns ErrKeyNotFound if the record does not exist.
	Delete(ctx context.Context, address string) error
}
