// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package security

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestDisableCoreDumps(t *testing.T) {
	if err := DisableCoreDumps(); err != nil {
		t.Fatalf("DisableCoreDumps failed: %v", err)
	}
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &rlimit); err != nil {
		t.Fatalf("Getrlimit failed: %v", err)
	}
	if rlimit.Cur != 0 || rlimit.Max != 0 {
		t.Errorf("RLIMIT_CORE = %d/%d, want 0/0", rlimit.Cur, rlimit.Max)
	}
}
