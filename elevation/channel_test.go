/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package elevation

import (
	"testing"

	"github.com/google/uuid"
)

func TestChannelIdentitiesAreDistinct(t *testing.T) {
	seen := make(map[uuid.UUID]string)
	for _, c := range Channels() {
		if prev, ok := seen[c.IID]; ok {
			t.Errorf("Channels %s and %s share an IID", prev, c.Name)
		}
		seen[c.IID] = c.Name
		if prev, ok := seen[c.CLSID]; ok {
			t.Errorf("Channels %s and %s share a CLSID", prev, c.Name)
		}
		seen[c.CLSID] = c.Name
	}
}

func TestChannelLookup(t *testing.T) {
	c, err := ChannelByName("STABLE")
	if err != nil {
		t.Fatalf("Unable to look up stable channel: %s", err)
	}
	if c.Name != "stable" {
		t.Errorf("Wrong channel %q", c.Name)
	}
	byIID, err := ChannelByIID(c.IID)
	if err != nil {
		t.Fatalf("Unable to look up channel by IID: %s", err)
	}
	if byIID.Name != c.Name {
		t.Errorf("IID lookup returned %q", byIID.Name)
	}
	_, err = ChannelByName("aurora")
	if err == nil {
		t.Error("Unknown channel name accepted")
	}
}

func TestAcceptsApp(t *testing.T) {
	stable, _ := ChannelByName("stable")
	canary, _ := ChannelByName("canary")
	chromium, _ := ChannelByName("chromium")

	if !stable.AcceptsApp(stable.BrowserAppID) {
		t.Error("Stable rejected its own app")
	}
	if stable.AcceptsApp(canary.BrowserAppID) {
		t.Error("Stable accepted the canary app")
	}
	if !chromium.AcceptsApp(stable.BrowserAppID) || !chromium.AcceptsApp(canary.BrowserAppID) {
		t.Error("Chromium channel should accept any registered app")
	}
}
