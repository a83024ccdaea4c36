/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"crypto/sha256"
	"encoding/hex"
	"log"

	goversion "github.com/hashicorp/go-version"

	"github.com/omahatools/elevator/conf"
	"github.com/omahatools/elevator/elevation"
	"github.com/omahatools/elevator/version"
)

// checkBrowserVersion gates the claimed browser version against what the
// updater actually installed. The claim must parse, must not predate the
// oldest browser this service knows how to recover, and must not exceed the
// installed product version, since a browser cannot legitimately be newer
// than its own install state.
func checkBrowserVersion(claimed, installed string) elevation.HRESULT {
	claimedVersion, err := goversion.NewVersion(claimed)
	if err != nil {
		return elevation.EInvalidArg
	}
	floor, err := goversion.NewVersion(version.OldestSupportedBrowser)
	if err != nil {
		return elevation.EFail
	}
	if claimedVersion.LessThan(floor) {
		return elevation.EVersionMismatch
	}
	installedVersion, err := goversion.NewVersion(installed)
	if err != nil {
		// The updater wrote an unparseable pv; the install state is damaged,
		// which is exactly what recovery repairs, so let it through.
		return elevation.SOk
	}
	if claimedVersion.GreaterThan(installedVersion) {
		return elevation.EVersionMismatch
	}
	return elevation.SOk
}

// defaultPublisherKeyHash is the SHA-256 of the PKIX public key the recovery
// component is published with. Policy can extend the set via the registry but
// never empty it.
const defaultPublisherKeyHash = "7ab41a2e32f89255a115e4069d6d1d76e4a1bb41a4b988a27ea9cd3b4d180b3d"

const policyAllowedPublisherKeys = "AllowedPublisherKeys"

func allowedPublisherKeys() [][sha256.Size]byte {
	hexes := append([]string{defaultPublisherKeyHash}, conf.AdminStrings(policyAllowedPublisherKeys)...)
	keys := make([][sha256.Size]byte, 0, len(hexes))
	for _, h := range hexes {
		raw, err := hex.DecodeString(h)
		if err != nil || len(raw) != sha256.Size {
			log.Printf("Ignoring malformed publisher key hash %q", h)
			continue
		}
		var key [sha256.Size]byte
		copy(key[:], raw)
		keys = append(keys, key)
	}
	return keys
}
