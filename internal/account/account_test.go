// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package account

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keyerr"
	"github.com/aplane-algo/zilstore/internal/keystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKeyHex = "24180e6b0c3021aedb8f5a86f75276ee6fc7ff46e67e98e716728326102e91c9"
	testAddress       = "b5c2cdd79c37209c3cb59e04b7c4062a8f5d5271"
	testChecksum      = "0xB5c2cDd79C37209C3Cb59e04b7C4062A8F5D5271"
	testBech32        = "zil1khpvm4uuxusfc094nczt03qx928465n3zxxt2c"
	testPassphrase    = "xiaohuo"

	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(testPrivateKeyHex)
	require.NoError(t, err)
	return b
}

func fastEngine() *keystore.Engine {
	return keystore.NewEngine(keystore.WithScrypt(1024, 8, 1), keystore.WithPBKDF2Iterations(1000))
}

func TestNew(t *testing.T) {
	priv := testPrivateKey(t)
	acc, err := New(priv)
	require.NoError(t, err)

	assert.Equal(t, testAddress, acc.Address)
	assert.Len(t, acc.PublicKey, 33)
	assert.Equal(t, priv, acc.PrivateKey)

	// the account owns a copy
	priv[0] ^= 0xff
	assert.NotEqual(t, priv, acc.PrivateKey)

	checksum, err := acc.ChecksumAddress()
	require.NoError(t, err)
	assert.Equal(t, testChecksum, checksum)

	b32, err := acc.Bech32Address()
	require.NoError(t, err)
	assert.Equal(t, testBech32, b32)

	assert.NotContains(t, acc.String(), testPrivateKeyHex)
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New(make([]byte, 32))
	assert.ErrorIs(t, err, keyerr.ErrCryptoPrimitive)

	_, err = New([]byte{1, 2, 3})
	assert.ErrorIs(t, err, keyerr.ErrCryptoPrimitive)
}

func TestFromMnemonic(t *testing.T) {
	acc, err := FromMnemonic(testMnemonic, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "17f08231f4ae546f5d8d65d5dfa456fa999c8af629420d67c9af19161d78667f", hex.EncodeToString(acc.PrivateKey))
	assert.Equal(t, "21f0ca38bc8feb3155864763d3f39d4938f34e27", acc.Address)

	acc1, err := FromMnemonic(testMnemonic, "", 1)
	require.NoError(t, err)
	assert.Equal(t, "a19889a09d44de7bc1c127448c272a80a27a4e22", acc1.Address)

	_, err = FromMnemonic("abandon abandon", "", 0)
	assert.ErrorIs(t, err, keyerr.ErrEncoding)
}

func TestFileRoundTrip(t *testing.T) {
	engine := fastEngine()
	acc, err := New(testPrivateKey(t))
	require.NoError(t, err)

	for _, kind := range []kdf.Kind{kdf.Scrypt, kdf.PBKDF2} {
		t.Run(kind.String(), func(t *testing.T) {
			data, err := acc.ToFile([]byte(testPassphrase), kind, engine)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"address":"`+testAddress+`"`)

			got, err := FromFile(data, []byte(testPassphrase), engine)
			require.NoError(t, err)
			assert.Equal(t, acc.PrivateKey, got.PrivateKey)
			assert.Equal(t, acc.Address, got.Address)

			_, err = FromFile(data, []byte("wrong"), engine)
			assert.ErrorIs(t, err, keyerr.ErrAuthentication)
		})
	}
}

func TestFromFile_Malformed(t *testing.T) {
	_, err := FromFile([]byte("{"), []byte(testPassphrase), nil)
	assert.ErrorIs(t, err, keyerr.ErrEncoding)
}

func TestGenerate(t *testing.T) {
	a, err := Generate(nil)
	require.NoError(t, err)
	b, err := Generate(nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)

	// a fixed source yields a fixed key
	c, err := Generate(bytes.NewReader(testPrivateKey(t)))
	require.NoError(t, err)
	assert.Equal(t, testAddress, c.Address)
}

func TestZero(t *testing.T) {
	acc, err := New(testPrivateKey(t))
	require.NoError(t, err)
	key := acc.PrivateKey

	acc.Zero()
	assert.Nil(t, acc.PrivateKey)
	assert.Equal(t, make([]byte, 32), key)
}
