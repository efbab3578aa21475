// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/keystore"
	"github.com/aplane-algo/zilstore/internal/keytools"
)

// VerifyResult contains the result of verifying a single record file
type VerifyResult struct {
	Address  string
	FileName string
	Size     int64
	Valid    bool
	Error    string
	KDF      string
}

// VerifyReport contains the results of verifying a backup directory
type VerifyReport struct {
	BackupDir   string
	TotalFiles  int
	ValidFiles  int
	FailedFiles int
	Results     []VerifyResult
}

func (r *VerifyReport) add(result VerifyResult) {
	r.Results = append(r.Results, result)
	r.TotalFiles++
	if result.Valid {
		r.ValidFiles++
	} else {
		r.FailedFiles++
	}
}

// VerifyBackup checks every record in a backup without a passphrase:
// the checksum matches SHA256SUMS, the record parses, and the file name
// matches the address inside it.
func VerifyBackup(backupDir string) (*VerifyReport, error) {
	return verify(context.Background(), backupDir, nil, nil)
}

// DeepVerifyBackup additionally decrypts every record with passphrase and
// checks the recovered key derives the expected address.
func DeepVerifyBackup(ctx context.Context, backupDir string, passphrase []byte, engine *keystore.Engine) (*VerifyReport, error) {
	if engine == nil {
		engine = keystore.NewEngine()
	}
	return verify(ctx, backupDir, passphrase, engine)
}

func verify(ctx context.Context, backupDir string, passphrase []byte, engine *keystore.Engine) (*VerifyReport, error) {
	keysDir := filepath.Join(backupDir, KeysSubdir)
	addresses, err := ScanRecordFiles(keysDir)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no record files found in %s", keysDir)
	}
	checksums, err := readChecksums(backupDir)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		BackupDir: backupDir,
		Results:   make([]VerifyResult, 0, len(addresses)),
	}
	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.add(verifyFile(keysDir, addr, checksums, passphrase, engine))
	}
	return report, nil
}

// verifyFile checks one record; engine == nil skips decryption
func verifyFile(keysDir, addr string, checksums map[string]string, passphrase []byte, engine *keystore.Engine) VerifyResult {
	result := VerifyResult{
		Address:  addr,
		FileName: addr + recordExt,
	}
	fail := func(format string, args ...any) VerifyResult {
		result.Error = fmt.Sprintf(format, args...)
		return result
	}

	data, err := os.ReadFile(filepath.Join(keysDir, result.FileName))
	if err != nil {
		return fail("failed to read file: %v", err)
	}
	result.Size = int64(len(data))

	want, ok := checksums[result.FileName]
	if !ok {
		return fail("not listed in %s", ChecksumFile)
	}
	h := sha256.Sum256(data)
	if hex.EncodeToString(h[:]) != want {
		return fail("checksum mismatch")
	}

	rec, err := keystore.Parse(data)
	if err != nil {
		return fail("invalid record: %v", err)
	}
	result.KDF = rec.Crypto.KDF
	if norm, err := address.Normalize(rec.Address); err != nil || norm != addr {
		return fail("record address %q does not match file name", rec.Address)
	}

	if engine != nil {
		priv, err := engine.Decrypt(rec, passphrase)
		if err != nil {
			return fail("decryption failed: %v", err)
		}
		derived, err := keytools.AddressFromPrivateKey(priv)
		crypto.ZeroBytes(priv)
		if err != nil {
			return fail("invalid private key: %v", err)
		}
		if derived != addr {
			return fail("address mismatch: filename=%s, derived=%s", addr, derived)
		}
	}

	result.Valid = true
	return result
}
