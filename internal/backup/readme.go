// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package backup

import (
	"fmt"
	"path/filepath"

	"github.com/aplane-algo/zilstore/internal/fsutil"
)

// ReadmeContent is the README.md content written to backup directories
const ReadmeContent = `# Zilliqa Keystore Backup

This directory contains encrypted private keys backed up by zilstore.

## Layout

- ` + "`keystore/<address>.json`" + `: one Web3 Secret Storage (version 3) record per key,
  named after the lowercase hex address it controls
- ` + "`SHA256SUMS`" + `: checksums of every record, checkable with ` + "`sha256sum -c SHA256SUMS`" + `

Each record is self-contained and can be decrypted with only the file and the
passphrase it was created with. Records are copied byte for byte from the keystore.

## Record Format

- ` + "`crypto.kdf`" + `: ` + "`scrypt`" + ` (n=8192, r=8, p=1 by default) or ` + "`pbkdf2`" + ` (HMAC-SHA256, c=262144)
- ` + "`crypto.cipher`" + `: ` + "`aes-128-ctr`" + `, keyed with the first 16 bytes of the derived key
- ` + "`crypto.mac`" + `: HMAC-SHA256 keyed with the full derived key over
  derived_key[16:32] || ciphertext || iv || "aes-128-ctr"

Most Ethereum and Zilliqa wallets read this format directly.

## Restoring Keys

` + "```bash" + `
zilstore backup-verify /path/to/this/backup --deep
zilstore restore /path/to/this/backup
` + "```" + `

Records already present in the target keystore are skipped.

## Security Notes

- **Keep this backup secure**: anyone with a record can attempt to guess its passphrase offline
- **Remember your passphrase**: without it, the keys cannot be decrypted
- **Store offline**: consider keeping backups on offline media
- **Multiple copies**: keep backups in multiple secure locations

---
*Backup created by zilstore*
`

// WriteReadme writes README.md into the backup directory
func WriteReadme(destDir string) error {
	if err := fsutil.WriteFileExclusive(filepath.Join(destDir, "README.md"), []byte(ReadmeContent)); err != nil {
		return fmt.Errorf("failed to write README.md: %w", err)
	}
	return nil
}
