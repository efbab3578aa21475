// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keyerr"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.KDFKind() != kdf.Scrypt {
		t.Errorf("KDF = %s, want scrypt", cfg.KDF)
	}
	if cfg.ScryptN != 8192 || cfg.ScryptR != 8 || cfg.ScryptP != 1 || cfg.PBKDF2Iterations != 262144 {
		t.Errorf("unexpected KDF defaults: %+v", cfg)
	}
	if cfg.KeystoreDir != filepath.Join(dir, "keystore") {
		t.Errorf("KeystoreDir = %s", cfg.KeystoreDir)
	}
	if cfg.RPCURL != DefaultRPCURL || cfg.RPCTimeout() != 30*time.Second {
		t.Errorf("unexpected RPC defaults: %s %s", cfg.RPCURL, cfg.RPCTimeout())
	}
	if cfg.DecryptWorkers != 2 || cfg.RPCRateLimit != 0 {
		t.Errorf("unexpected worker/rate defaults: %+v", cfg)
	}
	if cfg.PassphraseHelper() != nil {
		t.Error("no passphrase helper expected by default")
	}
}

func TestLoadConfig_Overlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
kdf: pbkdf2
pbkdf2_iterations: 1000
keystore_dir: /var/lib/zil/keys
rpc_url: http://localhost:4201
rpc_rate_limit: 2.5
decrypt_workers: 8
`)
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.KDFKind() != kdf.PBKDF2 || cfg.PBKDF2Iterations != 1000 {
		t.Errorf("pbkdf2 settings not applied: %+v", cfg)
	}
	if cfg.ScryptN != kdf.DefaultScryptN {
		t.Errorf("unset fields should keep defaults, ScryptN = %d", cfg.ScryptN)
	}
	if cfg.KeystoreDir != "/var/lib/zil/keys" {
		t.Errorf("absolute keystore_dir changed: %s", cfg.KeystoreDir)
	}
	if cfg.RPCURL != "http://localhost:4201" || cfg.RPCRateLimit != 2.5 || cfg.DecryptWorkers != 8 {
		t.Errorf("rpc settings not applied: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown kdf", "kdf: argon2\n"},
		{"scrypt n not power of two", "scrypt_n: 1000\n"},
		{"negative iterations", "pbkdf2_iterations: -1\n"},
		{"bad url", "rpc_url: ftp://example.com\n"},
		{"negative rate", "rpc_rate_limit: -1\n"},
		{"negative workers", "decrypt_workers: -3\n"},
		{"malformed yaml", "kdf: [\n"},
		{"relative helper missing", "passphrase_command: [\"bin/missing\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := LoadConfig(dir)
			if !errors.Is(err, keyerr.ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoadConfig_PassphraseHelper(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "bin"), 0700); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "bin", "pass.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho secret\n"), 0700); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "passphrase_command: [\"bin/pass.sh\", \"show\"]\npassphrase_command_env:\n  VAULT: zil\n")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	helper := cfg.PassphraseHelper()
	if helper == nil {
		t.Fatal("expected a passphrase helper")
	}
	if helper.Argv[0] != script || helper.Argv[1] != "show" {
		t.Errorf("argv not resolved against data dir: %v", helper.Argv)
	}
	if helper.Env["VAULT"] != "zil" {
		t.Errorf("env not loaded: %v", helper.Env)
	}
}

func TestGetDataDir(t *testing.T) {
	t.Setenv(DataDirEnv, "/from/env")
	if got := GetDataDir("/from/flag"); got != "/from/flag" {
		t.Errorf("flag should win, got %s", got)
	}
	if got := GetDataDir(""); got != "/from/env" {
		t.Errorf("env should be used, got %s", got)
	}

	t.Setenv(DataDirEnv, "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := GetDataDir(""); got != filepath.Join(home, ".zilstore") {
		t.Errorf("default = %s", got)
	}
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		path, base, want string
	}{
		{"", "/data", ""},
		{"keystore", "/data", "/data/keystore"},
		{"/abs/keys", "/data", "/abs/keys"},
		{"keystore", "", "keystore"},
		{"~/keys", "/data", filepath.Join(home, "keys")},
	}
	for _, tt := range tests {
		if got := ResolvePath(tt.path, tt.base); got != tt.want {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", tt.path, tt.base, got, tt.want)
		}
	}
}
