/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/windows"

	"github.com/omahatools/elevator/broker"
	"github.com/omahatools/elevator/elevate"
	"github.com/omahatools/elevator/elevation"
	"github.com/omahatools/elevator/ringlogger"
)

var flags = [...]string{
	"/installelevationservice CHANNEL|all",
	"/uninstallelevationservice CHANNEL|all",
	"/elevationservice CHANNEL",
	"/runrecovery CHANNEL CRX_PATH APPID BROWSER_VERSION SESSION_ID",
	"/dumplog",
}

func fatal(v ...any) {
	fmt.Fprintln(os.Stderr, append([]any{"Error:"}, v...)...)
	os.Exit(1)
}

func usage() {
	builder := strings.Builder{}
	for _, flag := range flags {
		builder.WriteString(fmt.Sprintf("    %s\n", flag))
	}
	fmt.Fprintf(os.Stderr, "Usage: %s [\n%s]\n", os.Args[0], builder.String())
	os.Exit(1)
}

func relaunchElevated(arg string) error {
	path, err := os.Executable()
	if err != nil {
		return err
	}
	err = windows.ShellExecute(0, windows.StringToUTF16Ptr("runas"), windows.StringToUTF16Ptr(path), windows.StringToUTF16Ptr(arg), nil, windows.SW_SHOW)
	if err != nil {
		return err
	}
	os.Exit(0)
	return windows.ERROR_ACCESS_DENIED // Not reached
}

func channelsFromArg(arg string) []elevation.Channel {
	if strings.EqualFold(arg, "all") {
		return elevation.Channels()
	}
	c, err := elevation.ChannelByName(arg)
	if err != nil {
		fatal(err)
	}
	return []elevation.Channel{c}
}

func main() {
	if len(os.Args) <= 1 {
		usage()
	}
	switch os.Args[1] {
	case "/installelevationservice":
		if len(os.Args) != 3 {
			usage()
		}
		if !elevate.ProcessIsElevated() {
			err := relaunchElevated(strings.Join(os.Args[1:], " "))
			if err != nil {
				fatal(err)
			}
			return
		}
		for _, channel := range channelsFromArg(os.Args[2]) {
			err := broker.Install(channel.Name)
			if err != nil {
				fatal(err)
			}
		}
		return
	case "/uninstallelevationservice":
		if len(os.Args) != 3 {
			usage()
		}
		if !elevate.ProcessIsElevated() {
			err := relaunchElevated(strings.Join(os.Args[1:], " "))
			if err != nil {
				fatal(err)
			}
			return
		}
		for _, channel := range channelsFromArg(os.Args[2]) {
			err := broker.Uninstall(channel.Name)
			if err != nil {
				fatal(err)
			}
		}
		return
	case "/elevationservice":
		if len(os.Args) != 3 {
			usage()
		}
		err := broker.Run(os.Args[2])
		if err != nil {
			fatal(err)
		}
		return
	case "/runrecovery":
		if len(os.Args) != 7 {
			usage()
		}
		channel, err := elevation.ChannelByName(os.Args[2])
		if err != nil {
			fatal(err)
		}
		client, err := broker.DialChannel(channel, time.Second*10)
		if err != nil {
			fatal(err)
		}
		defer client.Close()
		procHandle, status, err := client.RunRecoveryCRXElevated(os.Args[3], os.Args[4], os.Args[5], os.Args[6])
		if err != nil {
			fatal(err)
		}
		if status.Failed() {
			fatal(status)
		}
		fmt.Println("Recovery running; waiting for it to finish")
		exitCode, err := broker.WaitForProcess(procHandle)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Recovery exited with code %d\n", exitCode)
		return
	case "/dumplog":
		if len(os.Args) != 2 {
			usage()
		}
		err := ringlogger.DumpTo(os.Stdout)
		if err != nil {
			fatal(err)
		}
		return
	}
	usage()
}
