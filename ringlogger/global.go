/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package ringlogger

import (
	"log"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

var Global *Ringlogger

// LogPath is the shared audit ring. It sits in the vendor directory rather
// than the locked-down staging directory so that administrators can dump it
// while the service is running.
func LogPath() (string, error) {
	root, err := windows.KnownFolderPath(windows.FOLDERID_ProgramData, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "OmahaTools")
	err = os.Mkdir(dir, os.ModeDir|0700)
	if err != nil && !os.IsExist(err) {
		return "", err
	}
	return filepath.Join(dir, "elevation-log.bin"), nil
}

// InitGlobalLogger routes the stdlib logger, and even the Go runtime's own
// output, into the audit ring. The tag distinguishes which channel's broker
// wrote each line, since all channels share one ring.
func InitGlobalLogger(tag string) error {
	if Global != nil {
		return nil
	}
	path, err := LogPath()
	if err != nil {
		return err
	}
	Global, err = NewRinglogger(path, tag)
	if err != nil {
		return err
	}
	log.SetOutput(Global)
	log.SetFlags(0)
	overrideWrite = globalWrite
	return nil
}

//go:linkname overrideWrite runtime.overrideWrite
var overrideWrite func(fd uintptr, p unsafe.Pointer, n int32) int32

var (
	globalBuffer         [maxLogLineLength - 1 - maxTagLength - 3]byte
	globalBufferLocation int
)

//go:nosplit
func globalWrite(fd uintptr, p unsafe.Pointer, n int32) int32 {
	b := (*[1 << 30]byte)(p)[:n]
	for len(b) > 0 {
		amountAvailable := len(globalBuffer) - globalBufferLocation
		amountToCopy := len(b)
		if amountToCopy > amountAvailable {
			amountToCopy = amountAvailable
		}
		copy(globalBuffer[globalBufferLocation:], b[:amountToCopy])
		b = b[amountToCopy:]
		globalBufferLocation += amountToCopy
		foundNl := false
		for i := globalBufferLocation - amountToCopy; i < globalBufferLocation; i++ {
			if globalBuffer[i] == '\n' {
				foundNl = true
				break
			}
		}
		if foundNl || len(b) > 0 {
			Global.Write(globalBuffer[:globalBufferLocation])
			globalBufferLocation = 0
		}
	}
	return n
}
