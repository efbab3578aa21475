// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/fsutil"
	"github.com/aplane-algo/zilstore/internal/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
)

// DefaultCacheSize bounds the number of parsed records Dir keeps in memory
const DefaultCacheSize = 128

const recordExt = ".json"

// Dir implements Store as a directory of <address>.json files.
type Dir struct {
	path string

	// Parsed records by lowercase address. Records never change on disk
	// once written, so entries only leave the cache on Delete or eviction.
	cache *lru.Cache[string, *Record]
	mu    sync.RWMutex
}

// NewDir opens (creating if needed) a keystore directory.
func NewDir(path string) (*Dir, error) {
	if err := fsutil.MkdirAll(path); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	cache, err := lru.New[string, *Record](DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Dir{path: path, cache: cache}, nil
}

// Path returns the directory path
func (d *Dir) Path() string {
	return d.path
}

// FilePath returns where the record for addr lives (whether or not it exists).
func (d *Dir) FilePath(addr string) (string, error) {
	norm, err := address.Normalize(addr)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.path, norm+recordExt), nil
}

// Save writes rec as a new file. Existing records are never overwritten.
func (d *Dir) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	path, err := d.FilePath(rec.Address)
	if err != nil {
		return err
	}
	data, err := Marshal(rec)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := fsutil.WriteFileExclusive(path, data); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to write keystore record: %w", err)
	}

	cp := *rec
	d.cache.Add(strings.TrimSuffix(filepath.Base(path), recordExt), &cp)
	util.Debug("saved keystore record", "path", path)
	return nil
}

// Load returns a copy of the record for addr.
func (d *Dir) Load(ctx context.Context, addr string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.FilePath(addr)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSuffix(filepath.Base(path), recordExt)

	if rec, ok := d.cache.Get(key); ok {
		cp := *rec
		return &cp, nil
	}

	d.mu.RLock()
	rec, err := readRecord(path)
	d.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	d.cache.Add(key, rec)
	cp := *rec
	return &cp, nil
}

// Has reports whether a record for addr exists
func (d *Dir) Has(addr string) bool {
	path, err := d.FilePath(addr)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// List returns metadata for every readable record, sorted by address.
// Files that fail to parse are skipped; their errors are combined into the
// returned error alongside the records that did load.
func (d *Dir) List(ctx context.Context) ([]KeyMetadata, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore directory: %w", err)
	}

	var errs error
	result := make([]KeyMetadata, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}

		path := filepath.Join(d.path, entry.Name())
		rec, err := readRecord(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}

		addr, err := address.Normalize(rec.Address)
		if err != nil {
			addr = strings.ToLower(rec.Address)
		}
		meta := KeyMetadata{
			Address:  addr,
			ID:       rec.ID,
			KDF:      rec.Crypto.KDF,
			FilePath: path,
		}
		if info, err := entry.Info(); err == nil {
			meta.ModifiedAt = info.ModTime()
		}
		result = append(result, meta)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, errs
}

// Delete removes the record for addr
func (d *Dir) Delete(ctx context.Context, addr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.FilePath(addr)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache.Remove(strings.TrimSuffix(filepath.Base(path), recordExt))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to delete keystore record: %w", err)
	}
	return nil
}

// Import copies a record file from elsewhere into the directory.
// The record is parsed and validated first; it is not decrypted.
func (d *Dir) Import(ctx context.Context, path string) (*Record, error) {
	rec, err := readRecord(path)
	if err != nil {
		return nil, err
	}
	if err := d.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Compile-time interface check
var _ Store = (*Dir)(nil)
