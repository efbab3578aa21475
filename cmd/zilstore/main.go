// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// zilstore manages encrypted Zilliqa keystore files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aplane-algo/zilstore/internal/security"
	"github.com/aplane-algo/zilstore/internal/util"
	"github.com/aplane-algo/zilstore/internal/version"
)

// dataDir is resolved once in main from -d / ZILSTORE_DATA / ~/.zilstore
var dataDir string

func usage() {
	fmt.Fprintf(os.Stderr, "zilstore - Zilliqa keystore management\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] new [--kdf scrypt|pbkdf2] [--mnemonic]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] import <privkey-hex|-|keystore-file> [--kdf scrypt|pbkdf2]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] recover [--index N] [--kdf scrypt|pbkdf2]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] export <ADDRESS|keystore-file> [--show-private]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] list\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] verify\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] delete <ADDRESS> [--force]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] balance [ADDRESS...]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] backup <dest-dir> [ADDRESS...]\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] restore <backup-dir>\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] backup-verify <backup-dir> [--deep]\n")
	fmt.Fprintf(os.Stderr, "  zilstore checksum <ADDRESS>\n")
	fmt.Fprintf(os.Stderr, "  zilstore bech32 <ADDRESS|zil1...>\n")
	fmt.Fprintf(os.Stderr, "  zilstore [-d path] config\n")
	fmt.Fprintf(os.Stderr, "  zilstore version\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fmt.Fprintf(os.Stderr, "  -d path              Data directory (or set %s, default ~/.zilstore)\n", util.DataDirEnv)
	fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
	fmt.Fprintf(os.Stderr, "  %s  Keystore passphrase (skips the prompt)\n", passphraseEnv)
	fmt.Fprintf(os.Stderr, "  %s      Enable debug logging\n", util.DebugEnv)
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  zilstore new\n")
	fmt.Fprintf(os.Stderr, "  zilstore new --kdf pbkdf2 --mnemonic\n")
	fmt.Fprintf(os.Stderr, "  zilstore import ./UTC--2024-01-01--b5c2cdd7.json\n")
	fmt.Fprintf(os.Stderr, "  zilstore export zil1khpvm4uuxusfc094nczt03qx928465n3zxxt2c\n")
	fmt.Fprintf(os.Stderr, "  zilstore balance\n")
	fmt.Fprintf(os.Stderr, "  zilstore backup /media/usb/zil-backup\n")
}

func main() {
	// Handle early-exit flags before any other processing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version.String())
			os.Exit(0)
		}
	}

	flag.Usage = usage
	dataDirFlag := flag.String("d", "", "Data directory (or set ZILSTORE_DATA)")
	flag.Parse()

	util.InitLogger()
	dataDir = util.GetDataDir(*dataDirFlag)

	if err := security.DisableCoreDumps(); err != nil {
		util.Debug("core dumps left enabled", "error", err)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, args[0], args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	switch command {
	case "new":
		return cmdNew(ctx, args)
	case "import":
		return cmdImport(ctx, args)
	case "recover":
		return cmdRecover(ctx, args)
	case "export":
		return cmdExport(ctx, args)
	case "list":
		return cmdList(ctx)
	case "verify":
		return cmdVerify(ctx)
	case "delete":
		return cmdDelete(ctx, args)
	case "balance":
		return cmdBalance(ctx, args)
	case "backup":
		return cmdBackup(ctx, args)
	case "restore":
		return cmdRestore(ctx, args)
	case "backup-verify":
		return cmdBackupVerify(ctx, args)
	case "checksum":
		return cmdChecksum(args)
	case "bech32":
		return cmdBech32(args)
	case "config":
		util.DisplayConfig(dataDir)
		return nil
	case "version":
		fmt.Println(version.String())
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}
