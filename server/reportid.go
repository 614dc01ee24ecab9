// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package server

import "github.com/ffutop/modbus-rtu-stack/rtu"

// ReportServerIDResponse renders the FC 0x11 Report Server ID payload:
// byte-count, the server-identifier bytes, and a run-indicator status byte
// (0xFF running, 0x00 stopped). Grounded on rolfl-modbus's
// x11ReportServerID (serverMetadata.go), which has no fixed server-id
// format beyond "whatever bytes the implementation chooses to report" —
// so id is taken verbatim from the caller rather than invented here.
func ReportServerIDResponse(id []byte, running bool) []byte {
	status := byte(0x00)
	if running {
		status = 0xFF
	}
	out := make([]byte, 1+len(id)+1)
	out[0] = byte(len(id) + 1)
	copy(out[1:], id)
	out[len(out)-1] = status
	return out
}

// NewReportServerIDCustomFunc builds a CustomFunc that answers FC 0x11 with
// ReportServerIDResponse(id, running()) and rejects every other function
// code, for callers that have no other custom function codes to serve
// (§4.5: Report Server ID is reachable only through the custom slot).
func NewReportServerIDCustomFunc(id []byte, running func() bool) CustomFunc {
	return func(code byte, _ []byte) (resp []byte, excCode byte, handled bool) {
		if code != rtu.FuncReportServerID {
			return nil, 0, false
		}
		return ReportServerIDResponse(id, running()), 0, true
	}
}
