/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package services

import (
	"github.com/omahatools/elevator/elevation"
)

func ServiceNameOfChannel(channelName string) (string, error) {
	c, err := elevation.ChannelByName(channelName)
	if err != nil {
		return "", err
	}
	return "ElevationService$" + c.Name, nil
}

// PipePathOfChannel is where the broker for a channel listens. Unprivileged
// callers must be able to dial it, so access is restricted not by the name
// but by the security descriptor the broker attaches at creation time.
func PipePathOfChannel(channelName string) (string, error) {
	c, err := elevation.ChannelByName(channelName)
	if err != nil {
		return "", err
	}
	return `\\.\pipe\ElevationService\` + c.CLSID.String(), nil
}
