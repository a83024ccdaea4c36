/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

// Package elevation defines the wire contract between an unprivileged
// browser process and the elevated recovery broker: one call,
// RunRecoveryCRXElevated, carried over a per-channel named pipe.
package elevation

import "github.com/google/uuid"

// RPCMethod is the name the broker registers its receiver under, so client
// and server cannot drift apart on it.
const RPCMethod = "Elevator.RunRecoveryCRXElevated"

// Request carries the parameters of RunRecoveryCRXElevated. All four strings
// are required; they cross the process boundary by value and the broker works
// only on its own copies.
type Request struct {
	CrxPath        string
	BrowserAppID   string
	BrowserVersion string
	SessionID      string

	// CallerProcID is client-supplied and therefore untrusted. The broker
	// duplicates the result handle into this process only after verifying it
	// against the pipe's kernel-reported client PID.
	CallerProcID uint32
}

// Response is the call's single result. ProcHandle is pointer-sized and only
// meaningful inside the process identified by the request's CallerProcID.
type Response struct {
	ProcHandle uintptr
	Status     HRESULT
}

// Validate enforces the marshalling-level contract: the string parameters are
// simple refs, not optional ones, and the caller must identify itself.
func (r *Request) Validate() HRESULT {
	if r.CrxPath == "" || r.BrowserAppID == "" || r.BrowserVersion == "" || r.SessionID == "" {
		return EInvalidArg
	}
	if r.CallerProcID == 0 {
		return EInvalidArg
	}
	if _, err := uuid.Parse(r.BrowserAppID); err != nil {
		return EInvalidArg
	}
	return SOk
}

// AppID parses the request's BrowserAppID. Call Validate first.
func (r *Request) AppID() uuid.UUID {
	id, _ := uuid.Parse(r.BrowserAppID)
	return id
}
