/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package crx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoRunner = errors.New("CRX archive contains no recovery runner")

// recoveryRunnerName is the executable the recovery component ships at the
// archive root. If absent, a single top-level .exe is accepted instead.
const recoveryRunnerName = "ChromeRecovery.exe"

const maxUnpackedSize = 256 << 20

// Unpack extracts a verified container's zip payload into dest, which must
// already exist inside the broker's staging directory, and returns the path
// of the recovery runner executable. Archive member names are treated as
// hostile: anything absolute, parent-escaping, or device-like is rejected.
func Unpack(path string, c *CRX, dest string) (string, error) {
	return unpack(path, c, dest, maxUnpackedSize)
}

func unpack(path string, c *CRX, dest string, sizeLimit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	zr, err := zip.NewReader(io.NewSectionReader(f, c.ArchiveOffset, fi.Size()-c.ArchiveOffset), fi.Size()-c.ArchiveOffset)
	if err != nil {
		return "", err
	}

	var runner string
	var topLevelExes []string
	var total int64
	for _, member := range zr.File {
		name, err := sanitizeMemberName(member.Name)
		if err != nil {
			return "", err
		}
		target := filepath.Join(dest, name)
		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o700); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return "", err
		}
		// The cap is enforced on bytes actually written, since a member's
		// declared uncompressed size is just another hostile header field.
		written, err := extractMember(member, target, sizeLimit-total)
		total += written
		if err != nil {
			return "", err
		}
		if !strings.ContainsRune(name, filepath.Separator) && strings.EqualFold(filepath.Ext(name), ".exe") {
			topLevelExes = append(topLevelExes, target)
			if strings.EqualFold(name, recoveryRunnerName) {
				runner = target
			}
		}
	}
	if runner == "" {
		if len(topLevelExes) != 1 {
			return "", ErrNoRunner
		}
		runner = topLevelExes[0]
	}
	return runner, nil
}

func sanitizeMemberName(name string) (string, error) {
	name = strings.ReplaceAll(name, "/", string(filepath.Separator))
	if name == "" || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("archive member %q has an unsafe name", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive member %q escapes the extraction root", name)
	}
	return clean, nil
}

func extractMember(member *zip.File, target string, budget int64) (int64, error) {
	if budget <= 0 {
		return 0, fmt.Errorf("archive expands past the size cap at %q", member.Name)
	}
	in, err := member.Open()
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
	if err != nil {
		return 0, err
	}
	// Reading one byte past the budget distinguishes exactly-at-cap from over.
	written, err := io.Copy(out, io.LimitReader(in, budget+1))
	if err2 := out.Close(); err == nil {
		err = err2
	}
	if err == nil && written > budget {
		err = fmt.Errorf("archive expands past the size cap at %q", member.Name)
	}
	return written, err
}
