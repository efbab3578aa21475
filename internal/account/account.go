// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package account holds decrypted secp256k1 accounts and the in-memory
// wallet that groups them.
package account

import (
	"fmt"
	"io"

	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keystore"
	"github.com/aplane-algo/zilstore/internal/keytools"
)

// Account is an unlocked key pair. PrivateKey is secret; call Zero when done.
type Account struct {
	PrivateKey []byte
	PublicKey  []byte // compressed SEC1
	Address    string // lowercase hex, no 0x
}

// New builds an account from a raw private key. priv is copied.
func New(priv []byte) (*Account, error) {
	pub, err := keytools.PublicKeyFromPrivateKey(priv, true)
	if err != nil {
		return nil, err
	}
	addr, err := keytools.AddressFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	key := make([]byte, len(priv))
	copy(key, priv)
	return &Account{PrivateKey: key, PublicKey: pub, Address: addr}, nil
}

// Generate creates an account with a fresh private key read from r (nil = system CSPRNG).
func Generate(r io.Reader) (*Account, error) {
	priv, err := keytools.GeneratePrivateKey(r)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(priv)
	return New(priv)
}

// FromMnemonic derives the account at m/44'/313'/0'/0/index.
func FromMnemonic(mnemonic, password string, index uint32) (*Account, error) {
	priv, err := keytools.PrivateKeyFromMnemonic(mnemonic, password, index)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(priv)
	return New(priv)
}

// FromRecord decrypts a parsed keystore record.
func FromRecord(rec *keystore.Record, passphrase []byte, engine *keystore.Engine) (*Account, error) {
	if engine == nil {
		engine = keystore.NewEngine()
	}
	priv, err := engine.Decrypt(rec, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(priv)
	return New(priv)
}

// FromFile decrypts a keystore JSON document.
func FromFile(data, passphrase []byte, engine *keystore.Engine) (*Account, error) {
	rec, err := keystore.Parse(data)
	if err != nil {
		return nil, err
	}
	return FromRecord(rec, passphrase, engine)
}

// ToRecord encrypts the account's private key into a keystore record.
func (a *Account) ToRecord(passphrase []byte, kind kdf.Kind, engine *keystore.Engine) (*keystore.Record, error) {
	if engine == nil {
		engine = keystore.NewEngine()
	}
	return engine.Encrypt(a.PrivateKey, passphrase, kind)
}

// ToFile encrypts the account into keystore JSON.
func (a *Account) ToFile(passphrase []byte, kind kdf.Kind, engine *keystore.Engine) ([]byte, error) {
	rec, err := a.ToRecord(passphrase, kind, engine)
	if err != nil {
		return nil, err
	}
	return keystore.Marshal(rec)
}

// ChecksumAddress returns the 0x-prefixed mixed-case address
func (a *Account) ChecksumAddress() (string, error) {
	return address.ToChecksumAddress(a.Address)
}

// Bech32Address returns the zil1... form of the address
func (a *Account) Bech32Address() (string, error) {
	return address.ToBech32(a.Address)
}

// Zero wipes the private key.
func (a *Account) Zero() {
	crypto.ZeroBytes(a.PrivateKey)
	a.PrivateKey = nil
}

// String never prints the private key.
func (a *Account) String() string {
	return fmt.Sprintf("Account(%s)", a.Address)
}
