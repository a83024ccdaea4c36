/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"encoding/hex"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/omahatools/elevator/conf"
	"github.com/omahatools/elevator/crx"
	"github.com/omahatools/elevator/elevation"
)

// launchRecovery performs the side-effecting half of a validated request:
// stage the CRX out of caller-writable territory, verify and unpack it, spawn
// the runner, and duplicate the process handle into the verified caller. Any
// failure after the spawn terminates the spawned process, so the caller never
// observes a half-completed elevation.
func (s *Server) launchRecovery(args *elevation.Request, callerPID uint32) (uintptr, elevation.HRESULT) {
	fi, err := os.Lstat(args.CrxPath)
	if err != nil {
		return 0, elevation.EFileNotFound
	}
	if !fi.Mode().IsRegular() {
		return 0, elevation.EFileNotFound
	}

	workDir, err := os.MkdirTemp(s.stagingDir, "recovery-")
	if err != nil {
		log.Printf("Unable to create staging work directory: %v", err)
		return 0, elevation.EFail
	}
	staged := filepath.Join(workDir, "payload.crx")
	err = copyFile(args.CrxPath, staged)
	if err != nil {
		os.RemoveAll(workDir)
		log.Printf("Unable to stage %q: %v", args.CrxPath, err)
		return 0, elevation.EFileNotFound
	}

	// From here on only the staged copy is consulted; whatever happens to the
	// caller's file no longer matters.
	validated, err := crx.Verify(staged, s.allowedKeys)
	if err != nil {
		os.RemoveAll(workDir)
		log.Printf("CRX rejected: %v", err)
		return 0, elevation.ECrxRejected
	}
	unpacked := filepath.Join(workDir, "unpacked")
	err = os.Mkdir(unpacked, 0o700)
	if err != nil {
		os.RemoveAll(workDir)
		return 0, elevation.EFail
	}
	runner, err := crx.Unpack(staged, validated, unpacked)
	if err != nil {
		os.RemoveAll(workDir)
		log.Printf("CRX unpack failed: %v", err)
		return 0, elevation.ECrxRejected
	}
	log.Printf("Running recovery %s (digest %s) for app %s on behalf of PID %d", validated.ID, hex.EncodeToString(validated.Digest[:8]), args.BrowserAppID, callerPID)

	process, err := s.spawnRunner(runner, unpacked, args)
	if err != nil {
		os.RemoveAll(workDir)
		log.Printf("Unable to spawn recovery runner: %v", err)
		return 0, elevation.FromWin32(win32Code(err))
	}

	remote, err := duplicateIntoProcess(process, callerPID)
	if err != nil {
		log.Printf("Unable to duplicate process handle into PID %d: %v", callerPID, err)
		windows.TerminateProcess(process, 1)
		windows.CloseHandle(process)
		return 0, elevation.FromWin32(win32Code(err))
	}
	windows.CloseHandle(process)
	return uintptr(remote), elevation.SOk
}

func (s *Server) spawnRunner(runner, workDir string, args *elevation.Request) (windows.Handle, error) {
	cmdLine := windows.ComposeCommandLine([]string{
		runner,
		"--appguid=" + strings.ToUpper(args.BrowserAppID),
		"--browser-version=" + args.BrowserVersion,
		"--sessionid=" + args.SessionID,
	})
	runner16, err := windows.UTF16PtrFromString(runner)
	if err != nil {
		return 0, err
	}
	cmdLine16, err := windows.UTF16PtrFromString(cmdLine)
	if err != nil {
		return 0, err
	}
	workDir16, err := windows.UTF16PtrFromString(workDir)
	if err != nil {
		return 0, err
	}
	si := &windows.StartupInfo{Cb: uint32(unsafe.Sizeof(windows.StartupInfo{}))}
	pi := new(windows.ProcessInformation)
	err = windows.CreateProcess(runner16, cmdLine16, nil, nil, false, windows.CREATE_UNICODE_ENVIRONMENT|windows.CREATE_NO_WINDOW, nil, workDir16, si, pi)
	if err != nil {
		return 0, err
	}
	windows.CloseHandle(pi.Thread)
	return pi.Process, nil
}

// duplicateIntoProcess clones a process handle into the target process with
// just enough rights to wait on it, read its exit code, and kill it.
func duplicateIntoProcess(handle windows.Handle, pid uint32) (windows.Handle, error) {
	target, err := windows.OpenProcess(windows.PROCESS_DUP_HANDLE, false, pid)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(target)
	var remote windows.Handle
	err = windows.DuplicateHandle(windows.CurrentProcess(), handle, target, &remote, windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION|windows.PROCESS_TERMINATE, false, 0)
	if err != nil {
		return 0, err
	}
	return remote, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	return err
}

func win32Code(err error) uint32 {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return uint32(windows.ERROR_GEN_FAILURE)
}

// cleanupStaleStaging removes leftovers of earlier runs. It is called once at
// service start, before the pipe exists. A recovery runner spawned before a
// service restart may still be executing out of one of these directories;
// such a directory cannot be renamed while the runner lives, so it is left
// alone and swept on a later start.
func cleanupStaleStaging() {
	staging, err := conf.StagingDirectory()
	if err != nil {
		return
	}
	cleanupStaleStagingIn(staging)
}

func cleanupStaleStagingIn(staging string) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "recovery-") {
			continue
		}
		stale := filepath.Join(staging, entry.Name())
		doomed := stale
		if !strings.HasSuffix(entry.Name(), ".old") {
			doomed = stale + ".old"
			if os.Rename(stale, doomed) != nil {
				continue
			}
		}
		os.RemoveAll(doomed)
	}
}
