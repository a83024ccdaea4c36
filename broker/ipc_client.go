/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"errors"
	"net/rpc"
	"syscall"
	"time"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/omahatools/elevator/elevation"
	"github.com/omahatools/elevator/services"
)

// Client is the browser-side end of the contract. It dials the channel's
// pipe from the unprivileged process and issues the one call the broker
// understands.
type Client struct {
	channel elevation.Channel
	rpc     *rpc.Client
}

func DialChannel(channel elevation.Channel, timeout time.Duration) (*Client, error) {
	pipePath, err := services.PipePathOfChannel(channel.Name)
	if err != nil {
		return nil, err
	}
	conn, err := winio.DialPipe(pipePath, &timeout)
	if err != nil {
		return nil, err
	}
	return &Client{channel: channel, rpc: rpc.NewClient(conn)}, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

// RunRecoveryCRXElevated asks the broker to launch the given recovery CRX on
// our behalf. On success the returned handle refers to the spawned process
// and is valid in this process only.
func (c *Client) RunRecoveryCRXElevated(crxPath, browserAppID, browserVersion, sessionID string) (uintptr, elevation.HRESULT, error) {
	args := &elevation.Request{
		CrxPath:        crxPath,
		BrowserAppID:   browserAppID,
		BrowserVersion: browserVersion,
		SessionID:      sessionID,
		CallerProcID:   windows.GetCurrentProcessId(),
	}
	var reply elevation.Response
	err := c.rpc.Call(elevation.RPCMethod, args, &reply)
	if err != nil {
		return 0, elevation.EFail, err
	}
	return reply.ProcHandle, reply.Status, nil
}

// WaitForProcess blocks until the process behind a handle returned by
// RunRecoveryCRXElevated exits, then returns its exit code and releases the
// handle.
func WaitForProcess(procHandle uintptr) (uint32, error) {
	handle := windows.Handle(procHandle)
	defer windows.CloseHandle(handle)
	s, err := windows.WaitForSingleObject(handle, syscall.INFINITE)
	switch s {
	case windows.WAIT_OBJECT_0:
	case windows.WAIT_FAILED:
		return 0, err
	default:
		return 0, errors.New("unexpected result from WaitForSingleObject")
	}
	var exitCode uint32
	err = windows.GetExitCodeProcess(handle, &exitCode)
	if err != nil {
		return 0, err
	}
	return exitCode, nil
}
