// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package server

import (
	"encoding/binary"

	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// dispatch decodes a request PDU (code, data) and returns a response PDU's
// data plus an exception code (0 for success). Wire layout and range
// checks follow the teacher's internal/local-slave.LocalSlave handlers
// (internal/local-slave/slave.go), generalized to caller-supplied
// callbacks instead of one fixed DataModel.
func (c *Channel) dispatch(code byte, data []byte) (resp []byte, excCode byte) {
	switch code {
	case rtu.FuncReadCoils:
		return c.handleReadBits(data, c.callbacks.ReadCoils)
	case rtu.FuncReadDiscreteInputs:
		return c.handleReadBits(data, c.callbacks.ReadDiscreteInputs)
	case rtu.FuncReadHoldingRegisters:
		return c.handleReadRegisters(data, c.callbacks.ReadHoldingRegisters)
	case rtu.FuncReadInputRegisters:
		return c.handleReadRegisters(data, c.callbacks.ReadInputRegisters)
	case rtu.FuncWriteSingleCoil:
		return c.handleWriteSingleCoil(data)
	case rtu.FuncWriteSingleRegister:
		return c.handleWriteSingleRegister(data)
	case rtu.FuncWriteMultipleCoils:
		return c.handleWriteMultipleCoils(data)
	case rtu.FuncWriteMultipleRegister:
		return c.handleWriteMultipleRegisters(data)
	case rtu.FuncDiagnostics:
		return c.handleDiagnostics(data)
	default:
		if c.callbacks.Custom != nil {
			if out, exc, handled := c.callbacks.Custom(code, data); handled {
				return out, exc
			}
		}
		return nil, rtu.ExceptionIllegalFunction
	}
}

func (c *Channel) handleReadBits(data []byte, fn ReadBitsFunc) ([]byte, byte) {
	if fn == nil {
		return nil, rtu.ExceptionIllegalFunction
	}
	if len(data) != 4 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	if quantity < 1 || quantity > 2000 || int(address)+int(quantity)-1 > 0xFFFF {
		return nil, rtu.ExceptionIllegalDataValue
	}

	bits, exc := fn(address, quantity)
	if exc != 0 {
		return nil, exc
	}

	packed := packBits(bits)
	out := make([]byte, 1+len(packed))
	out[0] = byte(len(packed))
	copy(out[1:], packed)
	return out, 0
}

func (c *Channel) handleReadRegisters(data []byte, fn ReadRegistersFunc) ([]byte, byte) {
	if fn == nil {
		return nil, rtu.ExceptionIllegalFunction
	}
	if len(data) != 4 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	if quantity < 1 || quantity > 125 || int(address)+int(quantity)-1 > 0xFFFF {
		return nil, rtu.ExceptionIllegalDataValue
	}

	regs, exc := fn(address, quantity)
	if exc != 0 {
		return nil, exc
	}

	out := make([]byte, 1+2*len(regs))
	out[0] = byte(2 * len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[1+2*i:], r)
	}
	return out, 0
}

func (c *Channel) handleWriteSingleCoil(data []byte) ([]byte, byte) {
	if c.callbacks.WriteSingleCoil == nil {
		return nil, rtu.ExceptionIllegalFunction
	}
	if len(data) != 4 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	address := binary.BigEndian.Uint16(data[0:2])
	rawValue := binary.BigEndian.Uint16(data[2:4])

	var value bool
	switch rawValue {
	case 0x0000:
		value = false
	case 0xFF00:
		value = true
	default:
		return nil, rtu.ExceptionIllegalDataValue
	}

	if exc := c.callbacks.WriteSingleCoil(address, value); exc != 0 {
		return nil, exc
	}
	// Echoes the request verbatim on success (§4.5).
	echo := make([]byte, 4)
	copy(echo, data)
	return echo, 0
}

func (c *Channel) handleWriteSingleRegister(data []byte) ([]byte, byte) {
	if c.callbacks.WriteSingleRegister == nil {
		return nil, rtu.ExceptionIllegalFunction
	}
	if len(data) != 4 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	address := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	if exc := c.callbacks.WriteSingleRegister(address, value); exc != 0 {
		return nil, exc
	}
	echo := make([]byte, 4)
	copy(echo, data)
	return echo, 0
}

func (c *Channel) handleWriteMultipleCoils(data []byte) ([]byte, byte) {
	if c.callbacks.WriteMultipleCoils == nil {
		return nil, rtu.ExceptionIllegalFunction
	}
	if len(data) < 5 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]

	if quantity < 1 || quantity > 1968 || byteCount != byte((quantity+7)/8) || len(data) != int(5+byteCount) {
		return nil, rtu.ExceptionIllegalDataValue
	}

	values := unpackBits(data[5:], int(quantity))
	if exc := c.callbacks.WriteMultipleCoils(address, values); exc != 0 {
		return nil, exc
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], address)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, 0
}

func (c *Channel) handleWriteMultipleRegisters(data []byte) ([]byte, byte) {
	if c.callbacks.WriteMultipleRegisters == nil {
		return nil, rtu.ExceptionIllegalFunction
	}
	if len(data) < 5 {
		return nil, rtu.ExceptionIllegalDataValue
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]

	if quantity < 1 || quantity > 123 || byteCount != byte(2*quantity) || len(data) != int(5+byteCount) {
		return nil, rtu.ExceptionIllegalDataValue
	}

	values := make([]uint16, quantity)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(data[5+2*i:])
	}
	if exc := c.callbacks.WriteMultipleRegisters(address, values); exc != 0 {
		return nil, exc
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], address)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, 0
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func unpackBits(packed []byte, count int) []bool {
	out := make([]bool, count)
	for i := range out {
		out[i] = packed[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}
