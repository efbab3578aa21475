// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aplane-algo/zilstore/internal/keyerr"
)

// writeScript creates an executable shell script with the given body.
func writeScript(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helper.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPassphraseCommand_Output(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"trailing newline stripped once", `printf 'xiaohuo\n'`, "xiaohuo"},
		{"crlf stripped", `printf 'xiaohuo\r\n'`, "xiaohuo"},
		{"spaces kept", `printf '  pass  \n\n'`, "  pass  \n"},
		{"no newline", `printf 'raw'`, "raw"},
		{"base64", `printf 'base64:eGlhb2h1bw==\n'`, "xiaohuo"},
		{"hex", `printf 'hex:7869616f68756f'`, "xiaohuo"},
		{"args passed", `printf '%s-%s' "$1" "$2"`, "show-zil"},
		{"env passed", `printf '%s' "$VAULT_NAME"`, "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := &PassphraseCommand{
				Argv: []string{writeScript(t, tt.body, 0700), "show", "zil"},
				Env:  map[string]string{"VAULT_NAME": "main"},
			}
			got, err := pc.Run(context.Background())
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPassphraseCommand_EnvNotInherited(t *testing.T) {
	t.Setenv("ZILSTORE_SECRET_LEAK", "leaked")
	pc := &PassphraseCommand{Argv: []string{writeScript(t, `printf 'x%s' "$ZILSTORE_SECRET_LEAK"`, 0700)}}
	got, err := pc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "x" {
		t.Errorf("process environment leaked into helper: %q", got)
	}
}

func TestPassphraseCommand_Failures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"exit status", "exit 3", "command failed"},
		{"empty", "printf ''", "empty output"},
		{"only newline", "printf '\\n'", "empty output"},
		{"nul byte", `printf 'a\000b'`, "NUL"},
		{"bad base64", "printf 'base64:!!!'", "invalid base64"},
		{"bad hex", "printf 'hex:zz'", "invalid hex"},
		{"too large", `i=0; while [ $i -lt 9000 ]; do printf 'a'; i=$((i+1)); done`, "exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := &PassphraseCommand{Argv: []string{writeScript(t, tt.body, 0700)}}
			_, err := pc.Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("got %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestPassphraseCommand_Timeout(t *testing.T) {
	pc := &PassphraseCommand{Argv: []string{writeScript(t, "while :; do :; done", 0700)}}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pc.Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("got %v, want timeout", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("helper was not killed promptly")
	}
}

func TestPassphraseCommand_Validate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		argv []string
	}{
		{"empty", nil},
		{"relative", []string{"helper.sh"}},
		{"missing", []string{filepath.Join(dir, "missing")}},
		{"directory", []string{dir}},
		{"not executable", []string{writeScript(t, "true", 0600)}},
		{"world writable", []string{writeScript(t, "true", 0777)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := &PassphraseCommand{Argv: tt.argv}
			if err := pc.Validate(); !errors.Is(err, keyerr.ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
			if _, err := pc.Run(context.Background()); err == nil {
				t.Error("Run should fail validation")
			}
		})
	}
}
