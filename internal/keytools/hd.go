// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keytools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/keyerr"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// HardenedOffset marks a hardened BIP-32 child index
const HardenedOffset uint32 = hdkeychain.HardenedKeyStart

// CoinType is the SLIP-44 registered coin type for Zilliqa
const CoinType uint32 = 313

// DerivationPath returns m/44'/313'/0'/0/index as a list of child indexes.
func DerivationPath(index uint32) []uint32 {
	return []uint32{
		44 | HardenedOffset,
		CoinType | HardenedOffset,
		0 | HardenedOffset,
		0,
		index,
	}
}

// FormatPath renders a child index list as m/44'/313'/...
func FormatPath(path []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, i := range path {
		if i >= HardenedOffset {
			fmt.Fprintf(&b, "/%d'", i-HardenedOffset)
		} else {
			fmt.Fprintf(&b, "/%d", i)
		}
	}
	return b.String()
}

// NewMnemonic returns a fresh 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer crypto.ZeroBytes(entropy)
	return bip39.NewMnemonic(entropy)
}

// PrivateKeyFromMnemonic derives the private key at m/44'/313'/0'/0/index.
// password is the optional BIP-39 passphrase, not a keystore passphrase.
func PrivateKeyFromMnemonic(mnemonic, password string, index uint32) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, password)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mnemonic: %v", keyerr.ErrEncoding, err)
	}
	defer crypto.ZeroBytes(seed)
	return DeriveFromSeed(seed, DerivationPath(index))
}

// DeriveFromSeed walks a BIP-32 private derivation path from a seed.
func DeriveFromSeed(seed []byte, path []uint32) ([]byte, error) {
	// The network only selects xprv version bytes, which are never serialised here.
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	switch {
	case errors.Is(err, hdkeychain.ErrInvalidSeedLen):
		return nil, fmt.Errorf("%w: seed must be %d to %d bytes, got %d",
			keyerr.ErrConfiguration, hdkeychain.MinSeedBytes, hdkeychain.MaxSeedBytes, len(seed))
	case err != nil:
		return nil, fmt.Errorf("%w: seed produced an invalid master key: %v", keyerr.ErrCryptoPrimitive, err)
	}

	for _, index := range path {
		child, err := key.Derive(index)
		key.Zero()
		if err != nil {
			return nil, fmt.Errorf("%w: child %d is invalid: %v", keyerr.ErrCryptoPrimitive, index, err)
		}
		key = child
	}
	defer key.Zero()

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keyerr.ErrCryptoPrimitive, err)
	}
	defer priv.Zero()
	return priv.Serialize(), nil
}
