// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package backup copies keystore records to a backup directory, verifies
// backups and restores them.
//
// Records are already encrypted under their own passphrase, so a backup is a
// byte-for-byte copy plus a SHA256SUMS manifest and a README.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/fsutil"
	"github.com/aplane-algo/zilstore/internal/keystore"
)

const (
	// KeysSubdir holds the record files inside a backup directory
	KeysSubdir = "keystore"

	// ChecksumFile lists record checksums in sha256sum(1) format
	ChecksumFile = "SHA256SUMS"

	recordExt = ".json"
)

// Export copies the records for addrs (all records when addrs is empty) from
// src into destDir. Existing backup files are never overwritten.
// Returns the SHA256 checksum of each copied file by address.
func Export(ctx context.Context, src *keystore.Dir, destDir string, addrs []string) (map[string]string, error) {
	paths, err := selectRecords(ctx, src, addrs)
	if err != nil {
		return nil, err
	}

	keysDir := filepath.Join(destDir, KeysSubdir)
	if err := fsutil.MkdirAll(keysDir); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	checksums := make(map[string]string, len(paths))
	for addr, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum, err := copyRecord(path, filepath.Join(keysDir, addr+recordExt))
		if err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", addr, err)
		}
		checksums[addr] = sum
	}

	if err := writeChecksums(destDir, checksums); err != nil {
		return nil, err
	}
	if err := WriteReadme(destDir); err != nil {
		return nil, err
	}
	return checksums, nil
}

// selectRecords maps normalized addresses to record file paths.
// A store with unreadable records is refused rather than partially backed up.
func selectRecords(ctx context.Context, src *keystore.Dir, addrs []string) (map[string]string, error) {
	paths := make(map[string]string)
	if len(addrs) == 0 {
		metas, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("keystore has unreadable records: %w", err)
		}
		for _, meta := range metas {
			paths[meta.Address] = meta.FilePath
		}
	} else {
		for _, a := range addrs {
			norm, err := address.Normalize(a)
			if err != nil {
				return nil, err
			}
			if !src.Has(norm) {
				return nil, fmt.Errorf("%w: %s", keystore.ErrKeyNotFound, a)
			}
			path, _ := src.FilePath(norm)
			paths[norm] = path
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no keystore records found in %s", src.Path())
	}
	return paths, nil
}

func copyRecord(src, dest string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	if _, err := keystore.Parse(data); err != nil {
		return "", err
	}
	if err := fsutil.WriteFileExclusive(dest, data); err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func writeChecksums(destDir string, checksums map[string]string) error {
	addrs := make([]string, 0, len(checksums))
	for addr := range checksums {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var b strings.Builder
	for _, addr := range addrs {
		fmt.Fprintf(&b, "%s  %s/%s%s\n", checksums[addr], KeysSubdir, addr, recordExt)
	}
	if err := fsutil.WriteFileExclusive(filepath.Join(destDir, ChecksumFile), []byte(b.String())); err != nil {
		return fmt.Errorf("failed to write %s: %w", ChecksumFile, err)
	}
	return nil
}

// readChecksums parses SHA256SUMS into checksums by file name
func readChecksums(backupDir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(backupDir, ChecksumFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ChecksumFile, err)
	}
	sums := make(map[string]string)
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sum, name, ok := strings.Cut(line, "  ")
		if !ok || len(sum) != 2*sha256.Size {
			return nil, fmt.Errorf("%s line %d is malformed", ChecksumFile, i+1)
		}
		sums[filepath.Base(name)] = sum
	}
	return sums, nil
}
