// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/keyerr"
)

const (
	// PassphraseCommandTimeout bounds a passphrase helper run
	PassphraseCommandTimeout = 5 * time.Second

	// maxPassphraseOutputBytes caps helper stdout (8 KB)
	maxPassphraseOutputBytes = 8 * 1024
)

// PassphraseCommand runs an external helper (pass, a secret manager CLI,
// systemd-creds) that prints the keystore passphrase on stdout.
type PassphraseCommand struct {
	Argv []string          // argv[0] must be an absolute path
	Env  map[string]string // the only environment the helper sees
}

// Validate checks argv[0] is an absolute path to an executable that is not
// group or world writable.
func (pc *PassphraseCommand) Validate() error {
	if len(pc.Argv) == 0 {
		return fmt.Errorf("%w: passphrase_command must be non-empty", keyerr.ErrConfiguration)
	}
	path := pc.Argv[0]
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: passphrase_command %q must be an absolute path or relative to the data directory", keyerr.ErrConfiguration, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: passphrase_command: %v", keyerr.ErrConfiguration, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: passphrase_command %s is a directory", keyerr.ErrConfiguration, path)
	}
	perm := info.Mode().Perm()
	if perm&0111 == 0 {
		return fmt.Errorf("%w: passphrase_command %s is not executable (mode %04o)", keyerr.ErrConfiguration, path, perm)
	}
	if perm&0022 != 0 {
		return fmt.Errorf("%w: passphrase_command %s is group or world writable (mode %04o)", keyerr.ErrConfiguration, path, perm)
	}
	return nil
}

// Run executes the helper and returns the passphrase. Caller zeroes the result.
//
// Exactly one trailing newline (or CRLF) is stripped. Output prefixed with
// "base64:" or "hex:" is decoded. Empty output and NUL bytes are rejected.
// Stderr is discarded so a misbehaving helper cannot leak secrets into logs.
func (pc *PassphraseCommand) Run(ctx context.Context) ([]byte, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, PassphraseCommandTimeout)
	defer cancel()

	// Run in its own process group so a timeout kills children too
	cmd := exec.Command(pc.Argv[0], pc.Argv[1:]...) //nolint:gosec // validated above
	cmd.Env = pc.environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = io.Discard

	var stdout bytes.Buffer
	defer func() {
		crypto.ZeroBytes(stdout.Bytes())
		stdout.Reset()
	}()
	lw := &limitedWriter{w: &stdout, remaining: maxPassphraseOutputBytes}
	cmd.Stdout = lw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("passphrase_command: failed to start: %w", err)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case err := <-waitDone:
		if err != nil {
			return nil, fmt.Errorf("passphrase_command: command failed: %w", err)
		}
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-waitDone
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("passphrase_command: timed out")
		}
		return nil, ctx.Err()
	}

	if lw.truncated {
		return nil, fmt.Errorf("passphrase_command: output exceeded %d bytes", maxPassphraseOutputBytes)
	}

	output := stdout.Bytes()
	if n := len(output); n > 0 && output[n-1] == '\n' {
		output = output[:n-1]
		if n := len(output); n > 0 && output[n-1] == '\r' {
			output = output[:n-1]
		}
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("passphrase_command: empty output")
	}
	if bytes.IndexByte(output, 0) >= 0 {
		return nil, fmt.Errorf("passphrase_command: output contains NUL bytes")
	}
	return decodePassphraseOutput(output)
}

func (pc *PassphraseCommand) environ() []string {
	env := make([]string, 0, len(pc.Env))
	for k, v := range pc.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// decodePassphraseOutput returns a fresh slice; output is left for the caller to zero.
func decodePassphraseOutput(output []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(output, []byte("base64:")):
		encoded := output[len("base64:"):]
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
		n, err := base64.StdEncoding.Decode(decoded, encoded)
		if err != nil {
			crypto.ZeroBytes(decoded)
			return nil, fmt.Errorf("passphrase_command: invalid base64 output: %w", err)
		}
		return decoded[:n], nil

	case bytes.HasPrefix(output, []byte("hex:")):
		encoded := output[len("hex:"):]
		decoded := make([]byte, hex.DecodedLen(len(encoded)))
		n, err := hex.Decode(decoded, encoded)
		if err != nil {
			crypto.ZeroBytes(decoded)
			return nil, fmt.Errorf("passphrase_command: invalid hex output: %w", err)
		}
		return decoded[:n], nil
	}

	result := make([]byte, len(output))
	copy(result, output)
	return result, nil
}

// limitedWriter stops storing after a byte limit but keeps reporting full
// writes so the helper never sees a short write.
type limitedWriter struct {
	w         io.Writer
	remaining int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.remaining <= 0 {
		lw.truncated = true
		return len(p), nil
	}
	n := len(p)
	if int64(n) > lw.remaining {
		p = p[:lw.remaining]
		lw.truncated = true
	}
	written, err := lw.w.Write(p)
	lw.remaining -= int64(written)
	if err != nil {
		return written, err
	}
	return n, nil
}
