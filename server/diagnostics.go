// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package server

import (
	"encoding/binary"

	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// handleDiagnostics implements FC 0x08: sub-function 0 loops the data field
// back unchanged, the clear-counters sub-function resets all five counters,
// and the five counter-read sub-functions report one counter each in the
// echoed data field (§4.5). An unrecognized sub-function is treated as an
// illegal data value rather than illegal function, since the function code
// itself is valid — only its sub-function argument is out of range.
func (c *Channel) handleDiagnostics(data []byte) ([]byte, byte) {
	if len(data) != 4 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	subFunc := binary.BigEndian.Uint16(data[0:2])

	switch subFunc {
	case rtu.DiagSubQueryData:
		echo := make([]byte, 4)
		copy(echo, data)
		return echo, 0

	case rtu.DiagSubClearCounters:
		c.mu.Lock()
		c.counters = Counters{}
		c.mu.Unlock()
		echo := make([]byte, 4)
		copy(echo, data)
		return echo, 0

	case rtu.DiagSubReturnBusMessageCount:
		snap := c.Counters()
		return diagCounterResponse(subFunc, snap.BusMessageCount), 0
	case rtu.DiagSubReturnBusCommErrCount:
		snap := c.Counters()
		return diagCounterResponse(subFunc, snap.BusCommErrorCount), 0
	case rtu.DiagSubReturnBusExceptErrCnt:
		snap := c.Counters()
		return diagCounterResponse(subFunc, snap.BusExceptionErrorCount), 0
	case rtu.DiagSubReturnServerMessageCnt:
		snap := c.Counters()
		return diagCounterResponse(subFunc, snap.ServerMessageCount), 0
	case rtu.DiagSubReturnServerNoRespCnt:
		snap := c.Counters()
		return diagCounterResponse(subFunc, snap.ServerNoResponseCount), 0

	default:
		return nil, rtu.ExceptionIllegalDataValue
	}
}

func diagCounterResponse(subFunc uint16, value uint16) []byte {
	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], subFunc)
	binary.BigEndian.PutUint16(resp[2:4], value)
	return resp
}
