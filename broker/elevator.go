/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

// Package broker implements the elevated side of the recovery contract: a
// per-channel Windows service that listens on a named pipe, validates
// RunRecoveryCRXElevated requests from unprivileged browser processes, and
// launches the recovery runner with elevated privileges on their behalf.
package broker

import (
	"log"

	"github.com/omahatools/elevator/conf"
	"github.com/omahatools/elevator/elevation"
)

// Elevator is the RPC receiver. One instance exists per pipe connection and
// carries the kernel-verified identity of whoever dialed; the request's own
// caller fields are cross-checked against it, never trusted.
type Elevator struct {
	server    *Server
	clientPID uint32
}

// RunRecoveryCRXElevated validates the request and, when every gate passes,
// spawns the recovery runner and duplicates its process handle into the
// caller. The call either fully succeeds with a usable handle or fully fails
// with a failure HRESULT in the reply; the rpc-level error stays nil so the
// status code survives the trip back unmangled.
func (e *Elevator) RunRecoveryCRXElevated(args *elevation.Request, reply *elevation.Response) error {
	reply.Status = e.run(args, &reply.ProcHandle)
	if reply.Status.Failed() {
		log.Printf("Rejected recovery request from PID %d (session %q): %v", e.clientPID, args.SessionID, reply.Status)
	}
	return nil
}

func (e *Elevator) run(args *elevation.Request, procHandle *uintptr) elevation.HRESULT {
	if hr := args.Validate(); hr.Failed() {
		return hr
	}
	if conf.AdminBool(conf.PolicyDisableRecovery) {
		return elevation.EAccessDenied
	}
	if args.CallerProcID != e.clientPID {
		// The field crossed the trust boundary from the low-privilege side
		// and disagrees with what the kernel says about the pipe client.
		log.Printf("Caller claimed PID %d but pipe client is PID %d", args.CallerProcID, e.clientPID)
		return elevation.EAccessDenied
	}
	appID := args.AppID()
	if !e.server.channel.AcceptsApp(appID) {
		return elevation.EAppNotRegistered
	}
	state, err := conf.LookupClient(appID)
	if err != nil {
		return elevation.EAppNotRegistered
	}
	if hr := checkBrowserVersion(args.BrowserVersion, state.Version); hr.Failed() {
		return hr
	}

	handle, hr := e.server.launchRecovery(args, e.clientPID)
	if hr.Failed() {
		return hr
	}
	*procHandle = handle
	return elevation.SOk
}
