// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aplane-algo/zilstore/internal/account"
	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/crypto"
	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keystore"
	"github.com/aplane-algo/zilstore/internal/keytools"
	"github.com/aplane-algo/zilstore/internal/rpc"
	"github.com/aplane-algo/zilstore/internal/security"
	"github.com/aplane-algo/zilstore/internal/util"

	"go.uber.org/multierr"
)

// loadConfig reads config.yaml and applies lock_memory before any key is decrypted
func loadConfig() (util.Config, error) {
	cfg, err := util.LoadConfig(dataDir)
	if err != nil {
		return cfg, err
	}
	if cfg.LockMemory {
		if err := security.LockMemory(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// openStore loads config and opens the keystore directory it names
func openStore() (*keystore.Dir, util.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	dir, err := keystore.NewDir(cfg.KeystoreDir)
	if err != nil {
		return nil, cfg, err
	}
	return dir, cfg, nil
}

func newEngine(cfg util.Config) *keystore.Engine {
	return keystore.NewEngine(
		keystore.WithScrypt(cfg.ScryptN, cfg.ScryptR, cfg.ScryptP),
		keystore.WithPBKDF2Iterations(cfg.PBKDF2Iterations),
	)
}

// selectKDF returns the --kdf flag value if given, else the configured default
func selectKDF(flagValue string, cfg util.Config) (kdf.Kind, error) {
	if flagValue == "" {
		return cfg.KDFKind(), nil
	}
	return kdf.ParseKind(flagValue)
}

// parseArgs parses flags that may appear before or after positional args
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// parsePrivateKeyHex decodes a 32-byte hex private key, with or without 0x
func parsePrivateKeyHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*keytools.PrivateKeyLen {
		return nil, fmt.Errorf("private key must be %d hex characters", 2*keytools.PrivateKeyLen)
	}
	priv, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("private key is not valid hex")
	}
	return priv, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// printAddress shows every representation of addr
func printAddress(addr string) {
	checksum, err := address.ToChecksumAddress(addr)
	if err != nil {
		field("Address:", addr)
		return
	}
	field("Address:", addressStyle.Render(checksum))
	if b32, err := address.ToBech32(addr); err == nil {
		field("Bech32:", addressStyle.Render(b32))
	}
}

// saveAccount encrypts acc with a confirmed passphrase and writes it to dir
func saveAccount(ctx context.Context, dir *keystore.Dir, cfg util.Config, acc *account.Account, kind kdf.Kind) error {
	passphrase, err := getPassphrase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(passphrase)

	rec, err := acc.ToRecord(passphrase, kind, newEngine(cfg))
	if err != nil {
		return fmt.Errorf("failed to encrypt key: %w", err)
	}
	if err := dir.Save(ctx, rec); err != nil {
		if errors.Is(err, keystore.ErrKeyExists) {
			return fmt.Errorf("a record for %s already exists", acc.Address)
		}
		return err
	}

	path, _ := dir.FilePath(rec.Address)
	printAddress(rec.Address)
	field("KDF:", rec.Crypto.KDF)
	field("File:", path)
	return nil
}

func cmdNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	kdfName := fs.String("kdf", "", "Key derivation function (scrypt, pbkdf2)")
	withMnemonic := fs.Bool("mnemonic", false, "Derive the key from a new 24-word mnemonic")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	dir, cfg, err := openStore()
	if err != nil {
		return err
	}
	kind, err := selectKDF(*kdfName, cfg)
	if err != nil {
		return err
	}

	var (
		acc      *account.Account
		mnemonic string
	)
	if *withMnemonic {
		mnemonic, err = keytools.NewMnemonic()
		if err != nil {
			return err
		}
		acc, err = account.FromMnemonic(mnemonic, "", 0)
	} else {
		acc, err = account.Generate(nil)
	}
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	defer acc.Zero()

	if err := saveAccount(ctx, dir, cfg, acc, kind); err != nil {
		return err
	}
	if mnemonic != "" {
		fmt.Println()
		warn("Write down this mnemonic. It is the only backup not protected by the passphrase.")
		fmt.Println(mnemonic)
		field("Path:", keytools.FormatPath(keytools.DerivationPath(0)))
	}
	return nil
}

func cmdImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	kdfName := fs.String("kdf", "", "Key derivation function (scrypt, pbkdf2)")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: zilstore import <privkey-hex|-|keystore-file> [--kdf scrypt|pbkdf2]")
	}
	source := positional[0]

	dir, cfg, err := openStore()
	if err != nil {
		return err
	}

	// An existing keystore file is copied as-is
	if isFile(source) {
		rec, err := dir.Import(ctx, source)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", source, err)
		}
		printAddress(rec.Address)
		field("KDF:", rec.Crypto.KDF)
		fmt.Println(dimStyle.Render("Record copied without decrypting; run 'zilstore verify' to check the passphrase."))
		return nil
	}

	kind, err := selectKDF(*kdfName, cfg)
	if err != nil {
		return err
	}

	var keyText []byte
	if source == "-" {
		fmt.Fprint(os.Stderr, "Enter private key (hex): ")
		keyText, err = readLine(true)
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}
	} else {
		keyText = []byte(source)
	}
	priv, err := parsePrivateKeyHex(string(keyText))
	crypto.ZeroBytes(keyText)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(priv)

	acc, err := account.New(priv)
	if err != nil {
		return err
	}
	defer acc.Zero()
	return saveAccount(ctx, dir, cfg, acc, kind)
}

func cmdRecover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	kdfName := fs.String("kdf", "", "Key derivation function (scrypt, pbkdf2)")
	index := fs.Uint("index", 0, "Address index in m/44'/313'/0'/0/index")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *index >= uint(keytools.HardenedOffset) {
		return fmt.Errorf("index must be below %d", keytools.HardenedOffset)
	}

	dir, cfg, err := openStore()
	if err != nil {
		return err
	}
	kind, err := selectKDF(*kdfName, cfg)
	if err != nil {
		return err
	}

	fmt.Fprint(os.Stderr, "Enter mnemonic: ")
	words, err := readLine(true)
	if err != nil {
		return fmt.Errorf("failed to read mnemonic: %w", err)
	}
	mnemonic := strings.Join(strings.Fields(string(words)), " ")
	crypto.ZeroBytes(words)

	acc, err := account.FromMnemonic(mnemonic, "", uint32(*index)) // #nosec G115 - bounded above
	if err != nil {
		return err
	}
	defer acc.Zero()
	return saveAccount(ctx, dir, cfg, acc, kind)
}

func cmdExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	showPrivate := fs.Bool("show-private", false, "Print the private key")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: zilstore export <ADDRESS|keystore-file> [--show-private]")
	}
	target := positional[0]

	dir, cfg, err := openStore()
	if err != nil {
		return err
	}
	engine := newEngine(cfg)
	prompt := func() ([]byte, error) { return getPassphrase(ctx, cfg, false) }

	var priv []byte
	if isFile(target) {
		data, err := os.ReadFile(target)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", target, err)
		}
		passphrase, err := prompt()
		if err != nil {
			return err
		}
		priv, err = engine.DecryptJSON(data, passphrase)
		crypto.ZeroBytes(passphrase)
		if err != nil {
			return err
		}
	} else {
		if address.IsBech32(target) {
			if target, err = address.FromBech32(target); err != nil {
				return err
			}
		}
		session := keystore.NewSession(dir, engine)
		defer session.Destroy()
		priv, err = session.Unlock(ctx, target, prompt)
		if err != nil {
			return err
		}
	}
	defer crypto.ZeroBytes(priv)

	acc, err := account.New(priv)
	if err != nil {
		return err
	}
	defer acc.Zero()

	printAddress(acc.Address)
	field("Public key:", hex.EncodeToString(acc.PublicKey))
	if *showPrivate {
		warn("Private key follows. Anyone who sees it controls the funds.")
		field("Private key:", hex.EncodeToString(acc.PrivateKey))
	}
	return nil
}

func cmdList(ctx context.Context) error {
	dir, _, err := openStore()
	if err != nil {
		return err
	}

	records, err := dir.List(ctx)
	for _, e := range multierr.Errors(err) {
		warn("skipped %v", e)
	}

	fmt.Printf("Keystore: %s\n", dir.Path())
	if len(records) == 0 {
		fmt.Println("No keystore records found.")
		return nil
	}
	fmt.Printf("Found %d record(s):\n\n", len(records))
	for _, meta := range records {
		checksum, cerr := address.ToChecksumAddress(meta.Address)
		if cerr != nil {
			checksum = meta.Address
		}
		b32, _ := address.ToBech32(meta.Address)
		fmt.Printf("  %s  %s  %s  %s\n",
			addressStyle.Render(checksum),
			b32,
			dimStyle.Render(fmt.Sprintf("%-6s", meta.KDF)),
			dimStyle.Render(meta.ModifiedAt.Format(time.DateTime)))
	}
	return nil
}

// cmdVerify decrypts every record with one passphrase
func cmdVerify(ctx context.Context) error {
	dir, cfg, err := openStore()
	if err != nil {
		return err
	}
	records, _ := dir.List(ctx)
	if len(records) == 0 {
		fmt.Println("No keystore records found.")
		return nil
	}

	passphrase, err := getPassphrase(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(passphrase)

	wallet := account.NewWallet(newEngine(cfg))
	defer wallet.Zero()

	start := time.Now()
	loaded, err := wallet.LoadStore(ctx, dir, passphrase, cfg.DecryptWorkers)
	for _, addr := range wallet.Addresses() {
		fmt.Printf("  %s %s\n", addressStyle.Render("ok"), addr)
	}
	failures := multierr.Errors(err)
	for _, e := range failures {
		fmt.Printf("  %s %v\n", warnStyle.Render("failed"), e)
	}
	fmt.Printf("\n%d unlocked, %d failed (%s)\n", loaded, len(failures), time.Since(start).Round(time.Millisecond))
	if len(failures) > 0 {
		return fmt.Errorf("%d record(s) could not be unlocked", len(failures))
	}
	return nil
}

func cmdDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	force := fs.Bool("force", false, "Do not ask for confirmation")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: zilstore delete <ADDRESS> [--force]")
	}
	target := positional[0]
	if address.IsBech32(target) {
		if target, err = address.FromBech32(target); err != nil {
			return err
		}
	}

	dir, _, err := openStore()
	if err != nil {
		return err
	}
	path, err := dir.FilePath(target)
	if err != nil {
		return err
	}
	if !dir.Has(target) {
		return fmt.Errorf("no record for %s", target)
	}
	if !*force && !confirmPrompt(fmt.Sprintf("Delete %s? This cannot be undone without a backup", path)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := dir.Delete(ctx, target); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", path)
	return nil
}

func cmdBalance(ctx context.Context, args []string) error {
	dir, cfg, err := openStore()
	if err != nil {
		return err
	}

	addrs := args
	if len(addrs) == 0 {
		records, err := dir.List(ctx)
		if len(records) == 0 && err != nil {
			return err
		}
		for _, meta := range records {
			addrs = append(addrs, meta.Address)
		}
		if len(addrs) == 0 {
			fmt.Println("No keystore records found.")
			return nil
		}
	}

	client := rpc.NewClient(cfg.RPCURL, rpc.WithTimeout(cfg.RPCTimeout()), rpc.WithRateLimit(cfg.RPCRateLimit))
	provider := rpc.NewProvider(client)
	fmt.Println(dimStyle.Render("Node: " + client.URL()))

	var errs error
	for _, addr := range addrs {
		bal, err := provider.GetBalance(ctx, addr)
		if err != nil {
			errs = multierr.Append(errs, err)
			warn("%s: %v", addr, err)
			continue
		}
		zil, err := util.FormatZIL(bal.Balance)
		if err != nil {
			zil = bal.Balance + " Qa"
		} else {
			zil += " ZIL"
		}
		fmt.Printf("  %s  %s  %s\n", addressStyle.Render(addr), zil, dimStyle.Render(fmt.Sprintf("nonce %d", bal.Nonce)))
	}
	return errs
}

func cmdChecksum(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zilstore checksum <ADDRESS>")
	}
	addr := args[0]
	if address.IsBech32(addr) {
		var err error
		if addr, err = address.FromBech32(addr); err != nil {
			return err
		}
	}
	checksum, err := address.ToChecksumAddress(addr)
	if err != nil {
		return err
	}
	fmt.Println(checksum)
	return nil
}

// cmdBech32 converts in whichever direction the input calls for
func cmdBech32(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zilstore bech32 <ADDRESS|zil1...>")
	}
	if address.IsBech32(args[0]) {
		hexAddr, err := address.FromBech32(args[0])
		if err != nil {
			return err
		}
		checksum, err := address.ToChecksumAddress(hexAddr)
		if err != nil {
			return err
		}
		fmt.Println(checksum)
		return nil
	}
	b32, err := address.ToBech32(args[0])
	if err != nil {
		return err
	}
	fmt.Println(b32)
	return nil
}
