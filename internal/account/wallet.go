// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/keystore"
	"github.com/aplane-algo/zilstore/internal/util"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrNoDefaultAccount = errors.New("no default account")
)

// Wallet holds unlocked accounts keyed by upper-case address.
// The first account added becomes the default.
type Wallet struct {
	engine *keystore.Engine

	mu          sync.RWMutex
	accounts    map[string]*Account
	defaultAddr string
}

// NewWallet creates an empty wallet. A nil engine uses keystore.NewEngine().
func NewWallet(engine *keystore.Engine) *Wallet {
	if engine == nil {
		engine = keystore.NewEngine()
	}
	return &Wallet{engine: engine, accounts: make(map[string]*Account)}
}

// walletKey accepts hex (with or without 0x, any case) or zil1... addresses.
func walletKey(addr string) (string, error) {
	if address.IsBech32(addr) {
		hexAddr, err := address.FromBech32(addr)
		if err != nil {
			return "", err
		}
		addr = hexAddr
	}
	norm, err := address.Normalize(addr)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(norm), nil
}

// add stores acc, replacing (and zeroing) an existing account with the same address.
func (w *Wallet) add(acc *Account) *Account {
	key := strings.ToUpper(acc.Address)

	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.accounts[key]; ok && old != acc {
		old.Zero()
	}
	w.accounts[key] = acc
	if w.defaultAddr == "" {
		w.defaultAddr = key
	}
	return acc
}

// AddByPrivateKey adds the account for priv
func (w *Wallet) AddByPrivateKey(priv []byte) (*Account, error) {
	acc, err := New(priv)
	if err != nil {
		return nil, err
	}
	return w.add(acc), nil
}

// AddByKeystore decrypts a keystore JSON document and adds its account
func (w *Wallet) AddByKeystore(data, passphrase []byte) (*Account, error) {
	acc, err := FromFile(data, passphrase, w.engine)
	if err != nil {
		return nil, err
	}
	return w.add(acc), nil
}

// AddByMnemonic adds the account at m/44'/313'/0'/0/index
func (w *Wallet) AddByMnemonic(mnemonic, password string, index uint32) (*Account, error) {
	acc, err := FromMnemonic(mnemonic, password, index)
	if err != nil {
		return nil, err
	}
	return w.add(acc), nil
}

// Create generates a new account from r (nil = system CSPRNG) and adds it
func (w *Wallet) Create(r io.Reader) (*Account, error) {
	acc, err := Generate(r)
	if err != nil {
		return nil, err
	}
	return w.add(acc), nil
}

// Get returns the account for addr
func (w *Wallet) Get(addr string) (*Account, error) {
	key, err := walletKey(addr)
	if err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	acc, ok := w.accounts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc, nil
}

// Remove drops and zeroes the account for addr. Removing the default
// account leaves the wallet without a default.
func (w *Wallet) Remove(addr string) error {
	key, err := walletKey(addr)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	acc, ok := w.accounts[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	acc.Zero()
	delete(w.accounts, key)
	if w.defaultAddr == key {
		w.defaultAddr = ""
	}
	return nil
}

// SetDefault makes addr the default account
func (w *Wallet) SetDefault(addr string) error {
	key, err := walletKey(addr)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.accounts[key]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	w.defaultAddr = key
	return nil
}

// Default returns the default account
func (w *Wallet) Default() (*Account, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.defaultAddr == "" {
		return nil, ErrNoDefaultAccount
	}
	return w.accounts[w.defaultAddr], nil
}

// Addresses returns the lowercase addresses of all accounts, sorted
func (w *Wallet) Addresses() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.accounts))
	for _, acc := range w.accounts {
		out = append(out, acc.Address)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of accounts
func (w *Wallet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.accounts)
}

// LoadStore decrypts every record in store with one passphrase and adds the
// results. At most workers records are decrypted at once (minimum 1).
// Records that fail are skipped; their errors are combined in the returned
// error. The count of accounts added is returned either way.
func (w *Wallet) LoadStore(ctx context.Context, store keystore.Store, passphrase []byte, workers int) (int, error) {
	metas, listErr := store.List(ctx)
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		errs   = listErr
		loaded int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, meta := range metas {
		meta := meta
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := store.Load(gctx, meta.Address)
			var acc *Account
			if err == nil {
				acc, err = FromRecord(rec, passphrase, w.engine)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", meta.Address, err))
				return nil
			}
			w.add(acc)
			loaded++
			util.Debug("loaded account", "address", acc.Address)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return loaded, errs
}

// Zero wipes every private key and empties the wallet
func (w *Wallet) Zero() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key, acc := range w.accounts {
		acc.Zero()
		delete(w.accounts, key)
	}
	w.defaultAddr = ""
}
