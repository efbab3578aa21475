// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package fsutil provides filesystem helpers for the keystore directory.
// Keystore records are owner-only: 0600 files in 0700 directories.
package fsutil

import (
	"errors"
	"fmt"
	"os"
)

// KeyDirPerm is the permission mode for keystore directories.
const KeyDirPerm os.FileMode = 0700

// KeyFilePerm is the permission mode for keystore records.
const KeyFilePerm os.FileMode = 0600

// MkdirAll creates a directory and all parents, then forces KeyDirPerm
// on the leaf regardless of umask.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, KeyDirPerm); err != nil {
		return err
	}
	return os.Chmod(path, KeyDirPerm)
}

// CreateExclusive creates path for writing with KeyFilePerm.
// Fails with an error matching os.ErrExist if the file is already there.
// Caller is responsible for closing it.
func CreateExclusive(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, KeyFilePerm)
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(KeyFilePerm); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return f, nil
}

// WriteFileExclusive writes data to a new file at path and syncs it.
// A partially written file is removed.
func WriteFileExclusive(path string, data []byte) error {
	f, err := CreateExclusive(path)
	if err != nil {
		return err
	}
	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
