// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu implements the RTU framing and timing state machine (§4.3):
// frame assembly/disassembly, 3.5-character gap detection, CRC-16
// validation, ADU/PDU mapping and the per-port transport registry.
package rtu

// Size bounds for an RTU ADU (§3, §4.3): address(1) + code(1) + data(0..252)
// + crc(2) = up to 256 bytes.
const (
	MinADUSize = 4
	MaxADUSize = 256

	// MaxPDUData is the largest data payload a Packet can carry.
	MaxPDUData = 252

	// ExceptionSize is the length of an exception response PDU: code + one
	// exception byte.
	ExceptionSize = 2
)

// Address range (§4.3, §6).
const (
	AddressBroadcast  = 0
	AddressUnicastMin = 1
	AddressUnicastMax = 247
	// 248..255 are reserved.
)

// Function codes (§4.5, §6).
const (
	FuncReadCoils             = 0x01
	FuncReadDiscreteInputs    = 0x02
	FuncReadHoldingRegisters  = 0x03
	FuncReadInputRegisters    = 0x04
	FuncWriteSingleCoil       = 0x05
	FuncWriteSingleRegister   = 0x06
	FuncDiagnostics           = 0x08
	FuncWriteMultipleCoils    = 0x0F
	FuncWriteMultipleRegister = 0x10

	// FuncReportServerID (0x11 / 17 decimal) is supported only through the
	// server channel's custom-function-code slot, per §4.5.
	FuncReportServerID = 0x11
)

// ExceptionBit is set in the response's function code byte to signal an
// exception response (§6).
const ExceptionBit = 0x80

// Exception codes (§6).
const (
	ExceptionIllegalFunction     = 0x01
	ExceptionIllegalDataAddress  = 0x02
	ExceptionIllegalDataValue    = 0x03
	ExceptionServerDeviceFailure = 0x04
)

// Diagnostics sub-function codes (FC 0x08). The spec's §4.5 lists "query
// data, clear counters, and the five counter reads" without enumerating
// their wire values; these are the values the Modbus-IDA standard (§6)
// assigns, per the Open Question resolution recorded in DESIGN.md.
const (
	DiagSubQueryData             = 0x0000
	DiagSubClearCounters          = 0x000A
	DiagSubReturnBusMessageCount  = 0x000B
	DiagSubReturnBusCommErrCount  = 0x000C
	DiagSubReturnBusExceptErrCnt  = 0x000D
	DiagSubReturnServerMessageCnt = 0x000E
	DiagSubReturnServerNoRespCnt  = 0x000F
)
