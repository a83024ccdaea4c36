/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"golang.org/x/sys/windows/svc"

	"github.com/omahatools/elevator/elevate"
	"github.com/omahatools/elevator/elevation"
	"github.com/omahatools/elevator/ringlogger"
	"github.com/omahatools/elevator/services"
	"github.com/omahatools/elevator/version"
)

type elevationService struct {
	channelName string
}

func printPanic() {
	if x := recover(); x != nil {
		for _, line := range append([]string{fmt.Sprint(x)}, strings.Split(string(debug.Stack()), "\n")...) {
			if len(strings.TrimSpace(line)) > 0 {
				log.Println(line)
			}
		}
		panic(x)
	}
}

func logTag(channel elevation.Channel) string {
	tag := strings.ToUpper(channel.Name)
	if len(tag) > 5 {
		tag = tag[:5]
	}
	return tag
}

func (service *elevationService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	changes <- svc.Status{State: svc.StartPending}

	var err error
	serviceError := services.ErrorSuccess

	defer func() {
		svcSpecificEC, exitCode = services.DetermineErrorCode(err, serviceError)
		logErr := services.CombineErrors(err, serviceError)
		if logErr != nil {
			log.Print(logErr)
		}
		changes <- svc.Status{State: svc.StopPending}
	}()

	channel, err := elevation.ChannelByName(service.channelName)
	if err != nil {
		serviceError = services.ErrorUnknownChannel
		return
	}

	err = ringlogger.InitGlobalLogger(logTag(channel))
	if err != nil {
		serviceError = services.ErrorRingloggerOpen
		return
	}
	defer printPanic()

	log.Println("Starting", version.UserAgent(), "for channel", channel.DisplayName)

	if !elevate.ProcessIsElevated() {
		serviceError = services.ErrorNotElevated
		return
	}

	cleanupStaleStaging()

	server, err := NewServer(channel)
	if err != nil {
		serviceError = services.ErrorStagingDirectory
		return
	}

	err = services.DropAllPrivileges(true)
	if err != nil {
		serviceError = services.ErrorDropPrivileges
		return
	}

	serveErr := make(chan error, 1)
	go func() {
		defer printPanic()
		serveErr <- server.Serve()
	}()

	changes <- svc.Status{State: svc.Running, Accepts: svc.AcceptStop}
	log.Println("Listening for elevation requests")

loop:
	for {
		select {
		case err = <-serveErr:
			if err != nil {
				serviceError = services.ErrorCreatePipe
			}
			break loop
		case c := <-r:
			switch c.Cmd {
			case svc.Stop:
				break loop
			case svc.Interrogate:
				changes <- c.CurrentStatus
			default:
				log.Printf("Unexpected service control request #%d", c.Cmd)
			}
		}
	}

	changes <- svc.Status{State: svc.StopPending}
	server.Close()
	return
}

func Run(channelName string) error {
	serviceName, err := services.ServiceNameOfChannel(channelName)
	if err != nil {
		return err
	}
	return svc.Run(serviceName, &elevationService{channelName})
}
