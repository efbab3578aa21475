// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package testutil provides reusable test infrastructure and utilities.
package testutil

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keystore"
	"github.com/aplane-algo/zilstore/internal/keytools"
)

// Known key pair shared by CLI and integration tests
const (
	KnownPrivateKeyHex = "24180e6b0c3021aedb8f5a86f75276ee6fc7ff46e67e98e716728326102e91c9"
	KnownAddress       = "b5c2cdd79c37209c3cb59e04b7c4062a8f5d5271"
	KnownBech32        = "zil1khpvm4uuxusfc094nczt03qx928465n3zxxt2c"
)

// TestKey represents a generated test key pair
type TestKey struct {
	Address       string
	PrivateKey    []byte
	PrivateKeyHex string
}

// GenerateTestKey generates a random secp256k1 key for testing.
func GenerateTestKey(t *testing.T) *TestKey {
	t.Helper()

	priv, err := keytools.GeneratePrivateKey(nil)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}
	addr, err := keytools.AddressFromPrivateKey(priv)
	if err != nil {
		t.Fatalf("Failed to derive address: %v", err)
	}
	return &TestKey{
		Address:       addr,
		PrivateKey:    priv,
		PrivateKeyHex: hex.EncodeToString(priv),
	}
}

// FastEngine returns an engine with KDF costs low enough for tests.
// Records it writes are valid but must never hold real keys.
func FastEngine() *keystore.Engine {
	return keystore.NewEngine(keystore.WithScrypt(1024, 8, 1), keystore.WithPBKDF2Iterations(1000))
}

// SetupTestKeystore creates an empty keystore directory under t.TempDir().
func SetupTestKeystore(t *testing.T) *keystore.Dir {
	t.Helper()

	dir, err := keystore.NewDir(filepath.Join(t.TempDir(), "keystore"))
	if err != nil {
		t.Fatalf("Failed to create test keystore: %v", err)
	}
	return dir
}

// WriteTestRecord encrypts key under passphrase with FastEngine and saves it to dir.
func WriteTestRecord(t *testing.T, dir *keystore.Dir, key *TestKey, passphrase string, kind kdf.Kind) *keystore.Record {
	t.Helper()

	rec, err := FastEngine().Encrypt(key.PrivateKey, []byte(passphrase), kind)
	if err != nil {
		t.Fatalf("Failed to encrypt test key: %v", err)
	}
	if err := dir.Save(context.Background(), rec); err != nil {
		t.Fatalf("Failed to save test record: %v", err)
	}
	return rec
}

// TempFile creates a temporary file with the given content, returning the path.
// The file is automatically cleaned up when the test completes.
func TempFile(t *testing.T, content []byte) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "testfile-*")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		t.Fatalf("Failed to write temp file: %v", err)
	}

	_ = tmpFile.Close()
	return tmpFile.Name()
}
