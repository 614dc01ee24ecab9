// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

// CRC computes the Modbus RTU CRC-16: polynomial x^16 + x^15 + x^2 + 1
// (0xA001 reflected), initial value 0xFFFF, transmitted low byte first
// (§4.3, §6). The table is the standard reflected CRC-16/MODBUS table,
// generated from the polynomial rather than transcribed from any specific
// upstream source, since the teacher's own crc.go was not present in the
// retrieved reference pack — only its test (modbus/crc/crc_test.go), whose
// Reset/PushBytes/Value contract this type reproduces.
type CRC struct {
	value uint16
}

var crcTable [256]uint16

func init() {
	const poly = 0xA001
	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		crcTable[i] = crc
	}
}

// Reset sets the running CRC back to its initial value 0xFFFF and returns
// the receiver for chaining with PushBytes.
func (c *CRC) Reset() *CRC {
	c.value = 0xFFFF
	return c
}

// PushBytes folds data into the running CRC and returns the receiver.
func (c *CRC) PushBytes(data []byte) *CRC {
	for _, b := range data {
		c.value = (c.value >> 8) ^ crcTable[byte(c.value)^b]
	}
	return c
}

// Value returns the current CRC-16 value.
func (c *CRC) Value() uint16 {
	return c.value
}

// CRC16 computes the CRC of data in one call — a convenience wrapper around
// Reset().PushBytes(data).Value() for call sites that don't need a running
// checksum.
func CRC16(data []byte) uint16 {
	var c CRC
	return c.Reset().PushBytes(data).Value()
}
