/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package conf

import (
	"errors"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var cachedStagingDir string

// StagingDirectory returns the SYSTEM-owned directory the broker copies CRX
// files into before validating or running them. A caller-writable path must
// never be parsed or executed in place, so everything the broker touches goes
// through here first. The directory is created with an explicit DACL and then
// verified not to have been swapped for a link or reparse point underneath us.
func StagingDirectory() (string, error) {
	if cachedStagingDir != "" {
		return cachedStagingDir, nil
	}
	root, err := windows.KnownFolderPath(windows.FOLDERID_ProgramData, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return "", err
	}
	root = filepath.Join(root, "OmahaTools")
	root16, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return "", err
	}

	// The vendor directory inherits its ACL from ProgramData; only the
	// staging directory below gets locked down.
	err = windows.CreateDirectory(root16, nil)
	if err != nil && err != windows.ERROR_ALREADY_EXISTS {
		return "", err
	}

	stagingSd, err := windows.SecurityDescriptorFromString("O:SYG:SYD:PAI(A;OICI;FA;;;SY)(A;OICI;FA;;;BA)")
	if err != nil {
		return "", err
	}
	stagingSa := &windows.SecurityAttributes{
		Length:             uint32(unsafe.Sizeof(windows.SecurityAttributes{})),
		SecurityDescriptor: stagingSd,
	}

	staging := filepath.Join(root, "Staging")
	staging16, err := windows.UTF16PtrFromString(staging)
	if err != nil {
		return "", err
	}
	var stagingHandle windows.Handle
	for {
		err = windows.CreateDirectory(staging16, stagingSa)
		if err != nil && err != windows.ERROR_ALREADY_EXISTS {
			return "", err
		}
		stagingHandle, err = windows.CreateFile(staging16, windows.READ_CONTROL|windows.WRITE_OWNER|windows.WRITE_DAC, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE, nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OPEN_REPARSE_POINT|windows.FILE_ATTRIBUTE_DIRECTORY, 0)
		if err != nil && err != windows.ERROR_FILE_NOT_FOUND {
			return "", err
		}
		if err == nil {
			break
		}
	}
	defer windows.CloseHandle(stagingHandle)
	var fileInfo windows.ByHandleFileInformation
	err = windows.GetFileInformationByHandle(stagingHandle, &fileInfo)
	if err != nil {
		return "", err
	}
	if fileInfo.FileAttributes&windows.FILE_ATTRIBUTE_DIRECTORY == 0 {
		return "", errors.New("Staging directory is actually a file")
	}
	if fileInfo.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0 {
		return "", errors.New("Staging directory is a reparse point")
	}
	buf := make([]uint16, windows.MAX_PATH+4)
	for {
		bufLen, err := windows.GetFinalPathNameByHandle(stagingHandle, &buf[0], uint32(len(buf)), 0)
		if err != nil {
			return "", err
		}
		if bufLen < uint32(len(buf)) {
			break
		}
		buf = make([]uint16, bufLen)
	}
	if !strings.EqualFold(`\\?\`+staging, windows.UTF16ToString(buf[:])) {
		return "", errors.New("Staging directory jumped to unexpected location")
	}
	err = windows.SetKernelObjectSecurity(stagingHandle, windows.DACL_SECURITY_INFORMATION|windows.GROUP_SECURITY_INFORMATION|windows.OWNER_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION, stagingSd)
	if err != nil {
		return "", err
	}
	cachedStagingDir = staging
	return cachedStagingDir, nil
}
