// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import "fmt"

// headReserve/tailReserve are the fixed-width areas the spec requires
// around the PDU (§3): at least 1 byte ahead of `code` to place the RTU
// address with no copy, and at least 2 bytes after `data` to place the CRC
// with no copy.
const (
	headReserve = 1
	tailReserve = 2
)

// Packet is the PDU+ADU zero-copy container from §3: a contiguous backing
// array with `code` and up to MaxPDUData bytes of `data` sandwiched between
// a head area (address) and a tail area (CRC), so that framing never
// reallocates or copies the payload.
type Packet struct {
	buf  [headReserve + 1 + MaxPDUData + tailReserve]byte
	Node byte // 0 broadcast, 1..247 unicast (§3)
	Len  int  // data length actually in use
}

// Reset clears the packet to an empty PDU, ready for reuse from a pool.
func (p *Packet) Reset() {
	p.Node = 0
	p.Len = 0
	p.buf[headReserve] = 0
}

// Code returns the function code byte.
func (p *Packet) Code() byte { return p.buf[headReserve] }

// SetCode sets the function code byte.
func (p *Packet) SetCode(code byte) { p.buf[headReserve] = code }

// IsException reports whether the MSB of the function code is set.
func (p *Packet) IsException() bool { return p.buf[headReserve]&ExceptionBit != 0 }

// Data returns the current data payload.
func (p *Packet) Data() []byte {
	return p.buf[headReserve+1 : headReserve+1+p.Len]
}

// SetData copies data into the packet's payload area and updates Len.
func (p *Packet) SetData(data []byte) error {
	if len(data) > MaxPDUData {
		return fmt.Errorf("rtu: data length %d exceeds max %d", len(data), MaxPDUData)
	}
	copy(p.buf[headReserve+1:], data)
	p.Len = len(data)
	return nil
}

// head returns the reserved area immediately before the function code,
// where the transport places the RTU address byte with no copy.
func (p *Packet) head() []byte {
	return p.buf[:headReserve]
}

// tail returns the reserved area immediately after data, where the
// transport places the CRC with no copy.
func (p *Packet) tail() []byte {
	return p.buf[headReserve+1+p.Len : headReserve+1+p.Len+tailReserve]
}

// frame writes the address into the head reserve and returns the full
// [addr][code][data] slice the CRC is computed over — still zero-copy: the
// returned slice aliases the packet's own backing array.
func (p *Packet) frame(addr byte) []byte {
	head := p.head()
	head[headReserve-1] = addr
	return p.buf[headReserve-1 : headReserve+1+p.Len]
}

// Encode renders the packet as a full RTU ADU: [addr][code][data][crc_lo][crc_hi].
// Total size is bounds-checked against MaxADUSize (§3:
// "dataLen + 1 (code) + 1 (addr) + 2 (crc) <= 256").
func (p *Packet) Encode(addr byte) ([]byte, error) {
	total := p.Len + 1 + 1 + 2
	if total > MaxADUSize {
		return nil, fmt.Errorf("rtu: ADU length %d exceeds max %d", total, MaxADUSize)
	}
	body := p.frame(addr)
	checksum := CRC16(body)
	tail := p.tail()
	tail[0] = byte(checksum)
	tail[1] = byte(checksum >> 8)
	return p.buf[headReserve-1 : headReserve+1+p.Len+tailReserve], nil
}

// Decode parses a raw RTU ADU into the packet, validating CRC. raw must be
// at least MinADUSize bytes.
func (p *Packet) Decode(raw []byte) error {
	if len(raw) < MinADUSize {
		return fmt.Errorf("rtu: ADU length %d below minimum %d", len(raw), MinADUSize)
	}
	if len(raw) > MaxADUSize {
		return fmt.Errorf("rtu: ADU length %d exceeds max %d", len(raw), MaxADUSize)
	}

	body := raw[:len(raw)-2]
	checksum := CRC16(body)
	wire := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	if checksum != wire {
		return fmt.Errorf("rtu: CRC mismatch: computed %#04x, wire %#04x", checksum, wire)
	}

	p.Node = raw[0]
	p.SetCode(raw[1])
	return p.SetData(raw[2 : len(raw)-2])
}
