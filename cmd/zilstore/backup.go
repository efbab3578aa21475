// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/aplane-algo/zilstore/internal/address"
	"github.com/aplane-algo/zilstore/internal/backup"
	"github.com/aplane-algo/zilstore/internal/crypto"
)

func cmdBackup(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: zilstore backup <dest-dir> [ADDRESS...]")
	}
	dest := args[0]
	addrs := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		if address.IsBech32(a) {
			hexAddr, err := address.FromBech32(a)
			if err != nil {
				return err
			}
			a = hexAddr
		}
		addrs = append(addrs, a)
	}

	dir, _, err := openStore()
	if err != nil {
		return err
	}
	sums, err := backup.Export(ctx, dir, dest, addrs)
	if err != nil {
		return err
	}

	backedUp := make([]string, 0, len(sums))
	for addr := range sums {
		backedUp = append(backedUp, addr)
	}
	sort.Strings(backedUp)
	for _, addr := range backedUp {
		fmt.Printf("  %s  %s\n", addressStyle.Render(addr), dimStyle.Render(backup.FormatChecksum(sums[addr])))
	}
	fmt.Printf("\nBacked up %d record(s) to %s\n", len(sums), dest)
	return nil
}

func cmdRestore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zilstore restore <backup-dir>")
	}
	dir, _, err := openStore()
	if err != nil {
		return err
	}
	report, err := backup.Restore(ctx, args[0], dir)
	if report != nil {
		for _, addr := range report.Restored {
			fmt.Printf("  %s %s\n", addressStyle.Render("restored"), addr)
		}
		for _, addr := range report.Skipped {
			fmt.Printf("  %s %s\n", dimStyle.Render("exists  "), addr)
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("\n%d restored, %d already present\n", len(report.Restored), len(report.Skipped))
	return nil
}

func cmdBackupVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backup-verify", flag.ContinueOnError)
	deep := fs.Bool("deep", false, "Decrypt every record with the passphrase")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: zilstore backup-verify <backup-dir> [--deep]")
	}
	backupDir := positional[0]

	var report *backup.VerifyReport
	if *deep {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		passphrase, err := getPassphrase(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer crypto.ZeroBytes(passphrase)
		report, err = backup.DeepVerifyBackup(ctx, backupDir, passphrase, newEngine(cfg))
		if err != nil {
			return err
		}
	} else {
		report, err = backup.VerifyBackup(backupDir)
		if err != nil {
			return err
		}
	}

	for _, r := range report.Results {
		if r.Valid {
			fmt.Printf("  %s %s  %s %s\n", addressStyle.Render("ok    "), r.Address,
				dimStyle.Render(r.KDF), dimStyle.Render(backup.FormatFileSize(r.Size)))
		} else {
			fmt.Printf("  %s %s  %s\n", warnStyle.Render("failed"), r.Address, r.Error)
		}
	}
	fmt.Printf("\n%d of %d record(s) valid\n", report.ValidFiles, report.TotalFiles)
	if report.FailedFiles > 0 {
		return fmt.Errorf("%d record(s) failed verification", report.FailedFiles)
	}
	return nil
}
