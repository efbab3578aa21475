// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aplane-algo/zilstore/internal/keystore"
	"github.com/aplane-algo/zilstore/internal/util"
)

// RestoreReport lists what Restore did, by address
type RestoreReport struct {
	Restored []string
	Skipped  []string // already present in the keystore
}

// Restore imports every record of a verified backup into dst. The backup is
// checked first and nothing is restored if any record fails verification.
// Records whose address is already in dst are left untouched.
func Restore(ctx context.Context, backupDir string, dst *keystore.Dir) (*RestoreReport, error) {
	report, err := VerifyBackup(backupDir)
	if err != nil {
		return nil, err
	}
	if report.FailedFiles > 0 {
		for _, r := range report.Results {
			if !r.Valid {
				return nil, fmt.Errorf("backup failed verification: %s: %s", r.FileName, r.Error)
			}
		}
	}

	result := &RestoreReport{}
	keysDir := filepath.Join(backupDir, KeysSubdir)
	for _, r := range report.Results {
		_, err := dst.Import(ctx, filepath.Join(keysDir, r.FileName))
		switch {
		case err == nil:
			result.Restored = append(result.Restored, r.Address)
		case errors.Is(err, keystore.ErrKeyExists):
			util.Debug("restore skipped existing record", "address", r.Address)
			result.Skipped = append(result.Skipped, r.Address)
		default:
			return result, fmt.Errorf("failed to restore %s: %w", r.Address, err)
		}
	}
	return result, nil
}
