/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package conf

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/windows/registry"
)

const clientsRegKey = `Software\OmahaTools\Update\Clients\`

// ClientState is what the updater recorded about an installed app: the "pv"
// (product version) value and a display name. An app without a Clients key is
// not installed on this machine as far as the broker is concerned.
type ClientState struct {
	AppID   uuid.UUID
	Version string
	Name    string
}

func clientKeyPath(appID uuid.UUID) string {
	return clientsRegKey + "{" + strings.ToUpper(appID.String()) + "}"
}

func LookupClient(appID uuid.UUID) (*ClientState, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, clientKeyPath(appID), registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	version, _, err := key.GetStringValue("pv")
	if err != nil {
		return nil, err
	}
	name, _, err := key.GetStringValue("name")
	if err != nil {
		name = ""
	}
	return &ClientState{AppID: appID, Version: version, Name: name}, nil
}

// RegisterClient writes an app's client state. The updater normally owns
// these keys; this exists for installers and for bringing up test machines.
func RegisterClient(state *ClientState) error {
	key, _, err := registry.CreateKey(registry.LOCAL_MACHINE, clientKeyPath(state.AppID), registry.SET_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return err
	}
	defer key.Close()
	err = key.SetStringValue("pv", state.Version)
	if err != nil {
		return err
	}
	if state.Name != "" {
		err = key.SetStringValue("name", state.Name)
	}
	return err
}

func DeleteClient(appID uuid.UUID) error {
	return registry.DeleteKey(registry.LOCAL_MACHINE, clientKeyPath(appID))
}
