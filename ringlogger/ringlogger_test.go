/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package ringlogger

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.bin")
	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		rl, err := NewRinglogger(path, "ONE")
		if err != nil {
			t.Error(err)
			wg.Done()
			return
		}
		for i := 0; i < 512; i++ {
			fmt.Fprintf(rl, "request %d accepted", i)
		}
		rl.Close()
		wg.Done()
	}()
	go func() {
		rl, err := NewRinglogger(path, "TWO")
		if err != nil {
			t.Error(err)
			wg.Done()
			return
		}
		for i := 512; i < 1023; i++ {
			fmt.Fprintf(rl, "request %d rejected", i)
		}
		rl.Close()
		wg.Done()
	}()
	wg.Wait()
}

func TestWriteAndDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.bin")
	rl, err := NewRinglogger(path, "TST")
	if err != nil {
		t.Fatal(err)
	}
	_, err = rl.Write([]byte("recovery denied for PID 4321"))
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	_, err = rl.WriteTo(&out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[TST] recovery denied for PID 4321") {
		t.Errorf("Dump missing written line: %q", out.String())
	}
	rl.Close()
}
