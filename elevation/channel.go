/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package elevation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Channel is one browser release track. Every channel exposes the identical
// call contract; the GUIDs are the only difference between them, so that each
// track registers its own elevation service as its own OS-level trust
// boundary.
type Channel struct {
	Name        string
	DisplayName string

	// IID identifies the interface a client asks for and CLSID the server
	// class that answers. Both come from the upstream IDL.
	IID   uuid.UUID
	CLSID uuid.UUID

	// BrowserAppID is the update appid of the browser this channel serves.
	// The zero UUID means any registered app is acceptable, which is the
	// contract for non-branded builds.
	BrowserAppID uuid.UUID
}

var channels = [...]Channel{
	{
		Name:        "chromium",
		DisplayName: "Chromium",
		IID:         uuid.MustParse("B88C45B9-8825-4629-B83E-77CC67D9CEED"),
		CLSID:       uuid.MustParse("D133B120-6DB4-4D6B-8BFE-83BF8CA1B1B0"),
	},
	{
		Name:         "stable",
		DisplayName:  "Chrome",
		IID:          uuid.MustParse("463ABECF-410D-407F-8AF5-0DF35A005CC8"),
		CLSID:        uuid.MustParse("708860E0-F641-4611-8895-7D867DD3675B"),
		BrowserAppID: uuid.MustParse("8A69D345-D564-463C-AFF1-A69D9E530F96"),
	},
	{
		Name:         "beta",
		DisplayName:  "Chrome Beta",
		IID:          uuid.MustParse("A2721D66-376E-4D2F-9F0F-9070E9A42B5F"),
		CLSID:        uuid.MustParse("DD2646BA-3707-4BF8-B9A7-038691A68FC2"),
		BrowserAppID: uuid.MustParse("8237E44A-0054-442C-B6B6-EA0509993955"),
	},
	{
		Name:         "dev",
		DisplayName:  "Chrome Dev",
		IID:          uuid.MustParse("BB2AA26B-343A-4072-8B6F-80557B8CE571"),
		CLSID:        uuid.MustParse("DA7FDCA5-2CAA-4637-AA17-0740584DE7DA"),
		BrowserAppID: uuid.MustParse("401C381F-E0DE-4B85-8BD8-3F3F14FBDA57"),
	},
	{
		Name:         "canary",
		DisplayName:  "Chrome Canary",
		IID:          uuid.MustParse("4F7CE041-28E9-484F-9DD0-61A8CACEFEE4"),
		CLSID:        uuid.MustParse("704C2872-2049-435E-A469-0A534313C42B"),
		BrowserAppID: uuid.MustParse("4EA16AC7-FD5A-47C3-875B-DBF4A2008C20"),
	},
}

func Channels() []Channel {
	return channels[:]
}

func ChannelByName(name string) (Channel, error) {
	for _, c := range channels {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Channel{}, fmt.Errorf("unknown channel %q", name)
}

func ChannelByIID(iid uuid.UUID) (Channel, error) {
	for _, c := range channels {
		if c.IID == iid {
			return c, nil
		}
	}
	return Channel{}, fmt.Errorf("no channel with interface %s", iid)
}

// AcceptsApp reports whether an app identified by appID may request recovery
// through this channel.
func (c Channel) AcceptsApp(appID uuid.UUID) bool {
	if c.BrowserAppID == (uuid.UUID{}) {
		return true
	}
	return c.BrowserAppID == appID
}
