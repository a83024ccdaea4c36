/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"testing"

	"github.com/omahatools/elevator/elevation"
)

func TestCheckBrowserVersion(t *testing.T) {
	cases := []struct {
		claimed   string
		installed string
		want      elevation.HRESULT
	}{
		{"110.0.5481.100", "110.0.5481.100", elevation.SOk},
		{"109.0.0.0", "110.0.5481.100", elevation.SOk},
		{"111.0.0.0", "110.0.5481.100", elevation.EVersionMismatch},
		{"42.0.2311.90", "110.0.5481.100", elevation.EVersionMismatch},
		{"banana", "110.0.5481.100", elevation.EInvalidArg},
		{"110.0.5481.100", "garbage-pv", elevation.SOk},
	}
	for _, c := range cases {
		got := checkBrowserVersion(c.claimed, c.installed)
		if got != c.want {
			t.Errorf("checkBrowserVersion(%q, %q) = %v, want %v", c.claimed, c.installed, got, c.want)
		}
	}
}

func TestAllowedPublisherKeysAlwaysIncludesDefault(t *testing.T) {
	keys := allowedPublisherKeys()
	if len(keys) == 0 {
		t.Fatal("No publisher keys allowed; every CRX would be rejected")
	}
}
