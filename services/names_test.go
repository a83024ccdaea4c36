/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package services

import (
	"strings"
	"testing"
)

func TestNamesRequireKnownChannel(t *testing.T) {
	name, err := ServiceNameOfChannel("stable")
	if err != nil {
		t.Fatalf("Unable to name stable service: %s", err)
	}
	if name != "ElevationService$stable" {
		t.Errorf("Wrong service name %q", name)
	}
	path, err := PipePathOfChannel("stable")
	if err != nil {
		t.Fatalf("Unable to name stable pipe: %s", err)
	}
	if !strings.HasPrefix(path, `\\.\pipe\ElevationService\`) {
		t.Errorf("Wrong pipe path %q", path)
	}
	if _, err = ServiceNameOfChannel("nightly"); err == nil {
		t.Error("Unknown channel got a service name")
	}
	if _, err = PipePathOfChannel("nightly"); err == nil {
		t.Error("Unknown channel got a pipe path")
	}
}
