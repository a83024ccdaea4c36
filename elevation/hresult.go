/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package elevation

import "fmt"

// HRESULT follows the COM convention: non-negative values are success,
// negative values are failure. The constants below are the two's-complement
// views of the canonical 0x8xxxxxxx values, since Go has no untyped way to
// spell those in an int32.
type HRESULT int32

const (
	SOk           HRESULT = 0
	EFail         HRESULT = -0x7FFFBFFB // 0x80004005
	EAccessDenied HRESULT = -0x7FF8FFFB // 0x80070005, HRESULT_FROM_WIN32(ERROR_ACCESS_DENIED)
	EInvalidArg   HRESULT = -0x7FF8FFA9 // 0x80070057, HRESULT_FROM_WIN32(ERROR_INVALID_PARAMETER)
	EFileNotFound HRESULT = -0x7FF8FFFE // 0x80070002, HRESULT_FROM_WIN32(ERROR_FILE_NOT_FOUND)

	// FACILITY_ITF codes specific to the elevation service.
	ECrxRejected      HRESULT = -0x7FFBFDFF // 0x80040201
	EVersionMismatch  HRESULT = -0x7FFBFDFE // 0x80040202
	EAppNotRegistered HRESULT = -0x7FFBFDFD // 0x80040203
)

func (hr HRESULT) Succeeded() bool {
	return hr >= 0
}

func (hr HRESULT) Failed() bool {
	return hr < 0
}

func (hr HRESULT) String() string {
	switch hr {
	case SOk:
		return "S_OK"
	case EFail:
		return "E_FAIL"
	case EAccessDenied:
		return "E_ACCESSDENIED"
	case EInvalidArg:
		return "E_INVALIDARG"
	case EFileNotFound:
		return "HRESULT_FROM_WIN32(ERROR_FILE_NOT_FOUND)"
	case ECrxRejected:
		return "ELEVATION_E_CRX_REJECTED"
	case EVersionMismatch:
		return "ELEVATION_E_VERSION_MISMATCH"
	case EAppNotRegistered:
		return "ELEVATION_E_APP_NOT_REGISTERED"
	}
	return fmt.Sprintf("HRESULT(0x%08X)", uint32(hr))
}

// FromWin32 wraps a Win32 error code the way HRESULT_FROM_WIN32 does.
func FromWin32(code uint32) HRESULT {
	if code == 0 {
		return SOk
	}
	return HRESULT(int32(code&0xFFFF | 0x80070000))
}
