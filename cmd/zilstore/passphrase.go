// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/util"

	"golang.org/x/term"
)

// passphraseEnv supplies the keystore passphrase for scripted use
const passphraseEnv = "ZILSTORE_PASSPHRASE"

// stdinReader is a shared reader for non-terminal stdin
var stdinReader *bufio.Reader

// readLine reads one line from stdin, hiding input on a terminal when secret is set.
// Caller zeroes the result.
func readLine(secret bool) ([]byte, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors are small integers
	if secret && term.IsTerminal(fd) {
		line, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return line, err
	}

	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	line, err := stdinReader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	trimmed := bytes.TrimRight(line, "\r\n")
	out := make([]byte, len(trimmed))
	copy(out, trimmed)
	crypto.ZeroBytes(line)
	return out, nil
}

// getPassphrase resolves the keystore passphrase: ZILSTORE_PASSPHRASE, then the
// configured passphrase_command, then an interactive prompt. When confirm is
// set the prompt asks twice. Caller zeroes the result.
func getPassphrase(ctx context.Context, cfg util.Config, confirm bool) ([]byte, error) {
	if env := os.Getenv(passphraseEnv); env != "" {
		util.Debug("passphrase from environment")
		return []byte(env), nil
	}
	if helper := cfg.PassphraseHelper(); helper != nil {
		util.Debug("passphrase from helper", "command", helper.Argv[0])
		return helper.Run(ctx)
	}

	fmt.Fprint(os.Stderr, "Enter passphrase: ")
	passphrase, err := readLine(true)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	if !confirm {
		return passphrase, nil
	}

	fmt.Fprint(os.Stderr, "Confirm passphrase: ")
	again, err := readLine(true)
	if err != nil {
		crypto.ZeroBytes(passphrase)
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer crypto.ZeroBytes(again)
	if subtle.ConstantTimeCompare(passphrase, again) != 1 {
		crypto.ZeroBytes(passphrase)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}

// confirmPrompt asks a yes/no question on stderr; anything but y/yes is no.
func confirmPrompt(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, err := readLine(false)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(string(answer))) {
	case "y", "yes":
		return true
	}
	return false
}
