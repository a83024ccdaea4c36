/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

// Package version identifies this build of the elevation service and the
// range of browser versions it agrees to serve.
package version

import (
	"fmt"
	"runtime"
)

const Number = "1.3.36.352"

// OldestSupportedBrowser is the floor of the version gate applied to the
// browser_version field of incoming recovery requests. Browsers older than
// this predate the recovery component CRX3 format and must update through
// other means first.
const OldestSupportedBrowser = "70.0.0.0"

func UserAgent() string {
	return fmt.Sprintf("ElevationService/%s (%s; %s)", Number, runtime.Version(), runtime.GOARCH)
}
