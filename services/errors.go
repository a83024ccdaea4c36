/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package services

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

type Error uint32

const (
	ErrorSuccess Error = iota
	ErrorRingloggerOpen
	ErrorDetermineExecutablePath
	ErrorUnknownChannel
	ErrorNotElevated
	ErrorCreatePipe
	ErrorStagingDirectory
	ErrorDropPrivileges
	ErrorWin32
)

func (e Error) Error() string {
	switch e {
	case ErrorSuccess:
		return "No error"
	case ErrorRingloggerOpen:
		return "Unable to open log file"
	case ErrorDetermineExecutablePath:
		return "Unable to determine path of running executable"
	case ErrorUnknownChannel:
		return "Service was started for an unknown browser channel"
	case ErrorNotElevated:
		return "Service is not running with an elevated token"
	case ErrorCreatePipe:
		return "Unable to listen on named pipe"
	case ErrorStagingDirectory:
		return "Unable to create secure staging directory"
	case ErrorDropPrivileges:
		return "Unable to drop privileges"
	case ErrorWin32:
		return "An internal Windows error has occurred"
	default:
		return "An unknown error has occurred"
	}
}

func DetermineErrorCode(err error, serviceError Error) (bool, uint32) {
	if syserr, ok := err.(syscall.Errno); ok {
		return false, uint32(syserr)
	} else if serviceError != ErrorSuccess {
		return true, uint32(serviceError)
	} else {
		return false, windows.NO_ERROR
	}
}

func CombineErrors(err error, serviceError Error) error {
	if serviceError != ErrorSuccess {
		if err != nil {
			return fmt.Errorf("%v: %w", serviceError, err)
		}
		return serviceError
	}
	return err
}
