// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/keyerr"
	"github.com/aplane-algo/zilstore/internal/util"
)

// PromptFunc asks the user for a passphrase. The returned slice is zeroed by the caller.
type PromptFunc func() ([]byte, error)

// Session caches one passphrase and decrypts records on demand with it.
// Only the record asked for is decrypted; nothing is pre-loaded.
type Session struct {
	store      Store
	engine     *Engine
	passphrase *crypto.SecureString
	lock       sync.Mutex
}

// NewSession creates a session over store. A nil engine uses NewEngine().
func NewSession(store Store, engine *Engine) *Session {
	if engine == nil {
		engine = NewEngine()
	}
	return &Session{store: store, engine: engine}
}

// InitializeSession caches passphrase up front (copied; the caller may zero its slice).
func (s *Session) InitializeSession(passphrase []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clearPassphrase()
	s.passphrase = crypto.NewSecureStringFromBytes(passphrase)
}

// Unlock loads the record for address and decrypts it, prompting for the
// passphrase when none is cached. A passphrase that fails authentication is
// dropped from the cache so the next call prompts again.
// Caller owns the returned private key and must zero it.
func (s *Session) Unlock(ctx context.Context, address string, prompt PromptFunc) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	rec, err := s.store.Load(ctx, address)
	if err != nil {
		return nil, err
	}

	if s.passphrase == nil {
		if prompt == nil {
			return nil, fmt.Errorf("no passphrase available for %s", address)
		}
		passphrase, err := prompt()
		if err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
		s.clearPassphrase()
		s.passphrase = crypto.NewSecureStringFromBytes(passphrase)
		crypto.ZeroBytes(passphrase)
	}

	var privateKey []byte
	err = s.passphrase.WithBytes(func(p []byte) error {
		var derr error
		privateKey, derr = s.engine.Decrypt(rec, p)
		return derr
	})
	if errors.Is(err, keyerr.ErrAuthentication) {
		s.clearPassphrase()
	}
	if err != nil {
		return nil, err
	}
	return privateKey, nil
}

// clearPassphrase zeroes the cached passphrase. Caller holds s.lock.
func (s *Session) clearPassphrase() {
	if s.passphrase != nil {
		s.passphrase.Destroy()
		s.passphrase = nil
	}
}

// Destroy wipes the cached passphrase. It waits at most two seconds for an
// in-flight Unlock so shutdown cannot hang on a slow KDF.
func (s *Session) Destroy() {
	done := make(chan struct{})
	go func() {
		s.lock.Lock()
		s.clearPassphrase()
		s.lock.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		util.Logger.Warn("keystore session cleanup timed out (unlock still in progress)")
	}
}
