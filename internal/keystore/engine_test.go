// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keyerr"
	"github.com/aplane-algo/zilstore/internal/keytools"
)

const (
	testPrivateKeyHex = "24180e6b0c3021aedb8f5a86f75276ee6fc7ff46e67e98e716728326102e91c9"
	testAddress       = "b5c2cdd79c37209c3cb59e04b7c4062a8f5d5271"
	testPassphrase    = "xiaohuo"

	// pbkdf2 record produced by an independent implementation
	testRecordJSON = `{"address":"b5c2cdd79c37209c3cb59e04b7c4062a8f5d5271","id":"979daaf9-daf1-4002-8656-3cea134c9518","version":3,"crypto":{"cipher":"aes-128-ctr","ciphertext":"26be10cdae0f397bdeead38e7fcc179957dd5e7ef95a1f0f53f37b7ad1355159","kdf":"pbkdf2","mac":"81d8e60bc08237e4ba154c0b27ad08562821d8c602ee8a492434128de48b66bc","cipherparams":{"iv":"fc714ad6267c35a2df4cb3f8b8b3cc0d"},"kdfparams":{"n":8192,"c":262144,"r":8,"p":1,"dklen":32,"salt":"e22ef8a67a59299cee1532b6c6967bdfb0e75ca3c5dff852f9d8daa04683b0c1"}}}`
)

// countingReader yields 0x00, 0x01, 0x02, ... so encrypt output is reproducible
type countingReader struct {
	next byte
}

func (r *countingReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(testPrivateKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// fastEngine keeps KDF cost low for tests that do not check vectors
func fastEngine() *Engine {
	return NewEngine(WithScrypt(1024, 8, 1), WithPBKDF2Iterations(1000))
}

// TestEncrypt_Deterministic checks byte-exact output with a fixed random source
func TestEncrypt_Deterministic(t *testing.T) {
	tests := []struct {
		kind       kdf.Kind
		cipherText string
		mac        string
	}{
		{
			kind:       kdf.PBKDF2,
			cipherText: "75f9b1114bc20877ff84993abcafd43f92f46442b179503b4f5aa9debb36a331",
			mac:        "7f5b9bff6672fea0f9256b878efab8ed05b0b846e7263ecc4bc91f76440ae5c0",
		},
		{
			kind:       kdf.Scrypt,
			cipherText: "4cad2fe4232184c67caaf9e371eb7db299535fbb95b647e611d2d5ab40d42d42",
			mac:        "9b64198925f10e8715b7249e6e576f627a5a6614a7aa45f66d609a573dd48cb5",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			engine := NewEngine(WithRandom(&countingReader{}))
			data, err := engine.EncryptJSON(testPrivateKey(t), []byte(testPassphrase), tt.kind)
			if err != nil {
				t.Fatalf("EncryptJSON failed: %v", err)
			}

			want := `{"address":"` + testAddress + `",` +
				`"id":"30313233-3435-4637-b839-3a3b3c3d3e3f","version":3,` +
				`"crypto":{"cipher":"aes-128-ctr","ciphertext":"` + tt.cipherText + `",` +
				`"kdf":"` + string(tt.kind) + `","mac":"` + tt.mac + `",` +
				`"cipherparams":{"iv":"000102030405060708090a0b0c0d0e0f"},` +
				`"kdfparams":{"n":8192,"c":262144,"r":8,"p":1,"dklen":32,` +
				`"salt":"101112131415161718191a1b1c1d1e1f202122232425262728292a2b2c2d2e2f"}}}`
			if string(data) != want {
				t.Errorf("record mismatch\n got: %s\nwant: %s", data, want)
			}
		})
	}
}

// TestDecrypt_KnownRecord decrypts a record written by another implementation
func TestDecrypt_KnownRecord(t *testing.T) {
	priv, err := NewEngine().DecryptJSON([]byte(testRecordJSON), []byte(testPassphrase))
	if err != nil {
		t.Fatalf("DecryptJSON failed: %v", err)
	}
	if got := hex.EncodeToString(priv); got != testPrivateKeyHex {
		t.Errorf("private key = %s, want %s", got, testPrivateKeyHex)
	}
}

func TestRoundTrip(t *testing.T) {
	engine := fastEngine()

	for _, kind := range []kdf.Kind{kdf.Scrypt, kdf.PBKDF2} {
		for i := 0; i < 3; i++ {
			priv, err := keytools.GeneratePrivateKey(nil)
			if err != nil {
				t.Fatalf("GeneratePrivateKey failed: %v", err)
			}
			pass := []byte(strings.Repeat("p", i*7))

			rec, err := engine.Encrypt(priv, pass, kind)
			if err != nil {
				t.Fatalf("%s: Encrypt failed: %v", kind, err)
			}
			got, err := engine.Decrypt(rec, pass)
			if err != nil {
				t.Fatalf("%s: Decrypt failed: %v", kind, err)
			}
			if !bytes.Equal(got, priv) {
				t.Errorf("%s: round trip mismatch", kind)
			}
		}
	}
}

func TestEncrypt_FreshRandomness(t *testing.T) {
	engine := fastEngine()
	priv := testPrivateKey(t)

	a, err := engine.Encrypt(priv, []byte(testPassphrase), kdf.Scrypt)
	if err != nil {
		t.Fatal(err)
	}
	b, err := engine.Encrypt(priv, []byte(testPassphrase), kdf.Scrypt)
	if err != nil {
		t.Fatal(err)
	}

	if a.ID == b.ID || a.Crypto.CipherParams.IV == b.Crypto.CipherParams.IV ||
		a.Crypto.KDFParams.Salt == b.Crypto.KDFParams.Salt || a.Crypto.CipherText == b.Crypto.CipherText {
		t.Error("two encryptions of the same key should share no random material")
	}
	if a.Address != testAddress || b.Address != testAddress {
		t.Errorf("address = %s/%s, want %s", a.Address, b.Address, testAddress)
	}
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	_, err := NewEngine().DecryptJSON([]byte(testRecordJSON), []byte("xiaohuo!"))
	if !errors.Is(err, keyerr.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

// TestDecrypt_Tampering flips one bit at a time in the ciphertext and MAC
func TestDecrypt_Tampering(t *testing.T) {
	engine := fastEngine()
	rec, err := engine.Encrypt(testPrivateKey(t), []byte(testPassphrase), kdf.PBKDF2)
	if err != nil {
		t.Fatal(err)
	}

	flip := func(s string, bit int) string {
		b, _ := hex.DecodeString(s)
		b[bit/8] ^= 1 << (bit % 8)
		return hex.EncodeToString(b)
	}

	for _, bit := range []int{0, 7, 100, 255} {
		bad := *rec
		bad.Crypto.CipherText = flip(rec.Crypto.CipherText, bit)
		if priv, err := engine.Decrypt(&bad, []byte(testPassphrase)); !errors.Is(err, keyerr.ErrAuthentication) || priv != nil {
			t.Errorf("ciphertext bit %d: got key=%x err=%v", bit, priv, err)
		}

		bad = *rec
		bad.Crypto.MAC = flip(rec.Crypto.MAC, bit)
		if priv, err := engine.Decrypt(&bad, []byte(testPassphrase)); !errors.Is(err, keyerr.ErrAuthentication) || priv != nil {
			t.Errorf("mac bit %d: got key=%x err=%v", bit, priv, err)
		}
	}

	t.Run("iv bit", func(t *testing.T) {
		bad := *rec
		bad.Crypto.CipherParams.IV = flip(rec.Crypto.CipherParams.IV, 3)
		if _, err := engine.Decrypt(&bad, []byte(testPassphrase)); !errors.Is(err, keyerr.ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("malformed mac hex", func(t *testing.T) {
		bad := *rec
		bad.Crypto.MAC = "zz" + rec.Crypto.MAC[2:]
		if _, err := engine.Decrypt(&bad, []byte(testPassphrase)); !errors.Is(err, keyerr.ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("upper case mac accepted", func(t *testing.T) {
		ok := *rec
		ok.Crypto.MAC = strings.ToUpper(rec.Crypto.MAC)
		if _, err := engine.Decrypt(&ok, []byte(testPassphrase)); err != nil {
			t.Errorf("upper case mac rejected: %v", err)
		}
	})
}

func TestDecrypt_MalformedRecord(t *testing.T) {
	engine := fastEngine()
	rec, err := engine.Encrypt(testPrivateKey(t), []byte(testPassphrase), kdf.Scrypt)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(r *Record)
		wantErr error
	}{
		{"unknown kdf", func(r *Record) { r.Crypto.KDF = "argon2id" }, keyerr.ErrConfiguration},
		{"unknown cipher", func(r *Record) { r.Crypto.Cipher = "aes-256-gcm" }, keyerr.ErrConfiguration},
		{"version 1", func(r *Record) { r.Version = 1 }, keyerr.ErrConfiguration},
		{"short iv", func(r *Record) { r.Crypto.CipherParams.IV = "0001" }, keyerr.ErrConfiguration},
		{"bad iv hex", func(r *Record) { r.Crypto.CipherParams.IV = "xyz" }, keyerr.ErrEncoding},
		{"bad ciphertext hex", func(r *Record) { r.Crypto.CipherText = "not hex" }, keyerr.ErrEncoding},
		{"bad salt hex", func(r *Record) { r.Crypto.KDFParams.Salt = "g0" }, keyerr.ErrEncoding},
		{"n not power of two", func(r *Record) { r.Crypto.KDFParams.N = 1000 }, keyerr.ErrConfiguration},
		{"n 2^40", func(r *Record) { r.Crypto.KDFParams.N = 1 << 40 }, keyerr.ErrConfiguration},
		{"scrypt memory 64GiB", func(r *Record) { r.Crypto.KDFParams.N = 1 << 26 }, keyerr.ErrConfiguration},
		{"pbkdf2 c too large", func(r *Record) {
			r.Crypto.KDF = "pbkdf2"
			r.Crypto.KDFParams.C = 1 << 40
		}, keyerr.ErrConfiguration},
		{"dklen 16", func(r *Record) { r.Crypto.KDFParams.DKLen = 16 }, keyerr.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := *rec
			tt.mutate(&bad)
			priv, err := engine.Decrypt(&bad, []byte(testPassphrase))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if priv != nil {
				t.Error("no key material may be returned on failure")
			}
		})
	}
}

func TestEncrypt_Errors(t *testing.T) {
	engine := fastEngine()

	if _, err := engine.Encrypt(testPrivateKey(t), []byte("p"), kdf.Kind("bcrypt")); !errors.Is(err, keyerr.ErrConfiguration) {
		t.Errorf("unknown kdf: got %v", err)
	}
	if _, err := engine.Encrypt(bytes.Repeat([]byte{0xff}, 32), []byte("p"), kdf.Scrypt); !errors.Is(err, keyerr.ErrCryptoPrimitive) {
		t.Errorf("out of range key: got %v", err)
	}
	if _, err := NewEngine(WithScrypt(1000, 8, 1)).Encrypt(testPrivateKey(t), []byte("p"), kdf.Scrypt); !errors.Is(err, keyerr.ErrConfiguration) {
		t.Errorf("bad scrypt n: got %v", err)
	}

	// random source runs dry after the iv
	short := NewEngine(WithRandom(bytes.NewReader(make([]byte, 20))))
	if rec, err := short.Encrypt(testPrivateKey(t), []byte("p"), kdf.PBKDF2); err == nil || rec != nil {
		t.Errorf("expected failure on exhausted random source, got %v", err)
	}
}

func TestEngine_Concurrent(t *testing.T) {
	engine := fastEngine()
	priv := testPrivateKey(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := engine.Encrypt(priv, []byte(testPassphrase), kdf.Scrypt)
			if err != nil {
				errs <- err
				return
			}
			got, err := engine.Decrypt(rec, []byte(testPassphrase))
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, priv) {
				errs <- errors.New("round trip mismatch")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
