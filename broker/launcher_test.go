/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanupStaleStaging(t *testing.T) {
	staging := t.TempDir()
	stale := filepath.Join(staging, "recovery-1a2b3c")
	err := os.MkdirAll(filepath.Join(stale, "unpacked"), 0o700)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(filepath.Join(stale, "payload.crx"), []byte("leftover"), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	halfSwept := filepath.Join(staging, "recovery-4d5e6f.old")
	err = os.Mkdir(halfSwept, 0o700)
	if err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(staging, "settings")
	err = os.Mkdir(unrelated, 0o700)
	if err != nil {
		t.Fatal(err)
	}

	cleanupStaleStagingIn(staging)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Stale work directory survived cleanup")
	}
	if _, err := os.Stat(halfSwept); !os.IsNotExist(err) {
		t.Error("Half-swept work directory survived cleanup")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("Unrelated directory was removed: %s", err)
	}
}
