/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package elevation

import "testing"

func validRequest() Request {
	return Request{
		CrxPath:        `C:\recovery.crx`,
		BrowserAppID:   "{8A69D345-D564-463C-AFF1-A69D9E530F96}",
		BrowserVersion: "110.0.5481.100",
		SessionID:      "1",
		CallerProcID:   4321,
	}
}

func TestRequestValidate(t *testing.T) {
	r := validRequest()
	if hr := r.Validate(); hr != SOk {
		t.Errorf("Valid request rejected: %v", hr)
	}

	cases := []func(*Request){
		func(r *Request) { r.CrxPath = "" },
		func(r *Request) { r.BrowserAppID = "" },
		func(r *Request) { r.BrowserVersion = "" },
		func(r *Request) { r.SessionID = "" },
		func(r *Request) { r.CallerProcID = 0 },
		func(r *Request) { r.BrowserAppID = "not-a-guid" },
	}
	for i, mutate := range cases {
		r := validRequest()
		mutate(&r)
		if hr := r.Validate(); hr != EInvalidArg {
			t.Errorf("Case %d: expected E_INVALIDARG, got %v", i, hr)
		}
	}
}

func TestHRESULTConventions(t *testing.T) {
	if !SOk.Succeeded() || SOk.Failed() {
		t.Error("S_OK should succeed")
	}
	if EAccessDenied.Succeeded() || !EAccessDenied.Failed() {
		t.Error("E_ACCESSDENIED should fail")
	}
	// Conversion through a variable, since Go rejects constant-expression
	// conversions of negative values to uint32.
	for _, c := range []struct {
		hr   HRESULT
		want uint32
	}{
		{EFail, 0x80004005},
		{EAccessDenied, 0x80070005},
		{EInvalidArg, 0x80070057},
		{EFileNotFound, 0x80070002},
		{ECrxRejected, 0x80040201},
		{EVersionMismatch, 0x80040202},
		{EAppNotRegistered, 0x80040203},
	} {
		if uint32(c.hr) != c.want {
			t.Errorf("%v encodes as %#x, want %#x", c.hr, uint32(c.hr), c.want)
		}
	}
	if FromWin32(0) != SOk {
		t.Error("FromWin32(0) should be S_OK")
	}
	if FromWin32(2) != EFileNotFound {
		t.Errorf("FromWin32(ERROR_FILE_NOT_FOUND) is %v", FromWin32(2))
	}
	if FromWin32(5) != EAccessDenied {
		t.Errorf("FromWin32(ERROR_ACCESS_DENIED) is %v", FromWin32(5))
	}
}
