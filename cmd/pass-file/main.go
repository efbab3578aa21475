// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// pass-file is a passphrase command helper that prints a passphrase kept in
// a plaintext file. zilstore strips one trailing newline from its output.
//
// INSECURE / DEV ONLY: The passphrase is stored in plaintext.
// In production, use a secrets manager (macOS Keychain, TPM, Vault, etc.)
//
// Usage in config.yaml:
//
//	passphrase_command: ["/path/to/pass-file", "/path/to/passphrase-file"]
package main

import (
	"fmt"
	"io"
	"os"
)

// maxPassphraseFile matches the helper output limit enforced by zilstore
const maxPassphraseFile = 8192

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: pass-file <passphrase-file>\n")
		os.Exit(2)
	}
	if err := printPassphrase(os.Stdout, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "pass-file: %v\n", err)
		os.Exit(1)
	}
}

func printPassphrase(w io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return fmt.Errorf("%s is accessible by group or others (mode %04o)", path, info.Mode().Perm())
	}
	if info.Size() > maxPassphraseFile {
		return fmt.Errorf("%s is larger than %d bytes", path, maxPassphraseFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
