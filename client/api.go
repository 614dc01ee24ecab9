// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package client

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// ReadCoils sends FC 0x01.
func (c *Channel) ReadCoils(ctx context.Context, address byte, start, quantity uint16, timeout time.Duration) ([]bool, error) {
	resp, err := c.Send(ctx, address, rtu.FuncReadCoils, be16Pair(start, quantity), timeout)
	if err != nil {
		return nil, err
	}
	return decodeBitResponse(resp.Data(), quantity)
}

// ReadDiscreteInputs sends FC 0x02.
func (c *Channel) ReadDiscreteInputs(ctx context.Context, address byte, start, quantity uint16, timeout time.Duration) ([]bool, error) {
	resp, err := c.Send(ctx, address, rtu.FuncReadDiscreteInputs, be16Pair(start, quantity), timeout)
	if err != nil {
		return nil, err
	}
	return decodeBitResponse(resp.Data(), quantity)
}

// ReadHoldingRegisters sends FC 0x03.
func (c *Channel) ReadHoldingRegisters(ctx context.Context, address byte, start, quantity uint16, timeout time.Duration) ([]uint16, error) {
	resp, err := c.Send(ctx, address, rtu.FuncReadHoldingRegisters, be16Pair(start, quantity), timeout)
	if err != nil {
		return nil, err
	}
	return decodeRegisterResponse(resp.Data(), quantity)
}

// ReadInputRegisters sends FC 0x04.
func (c *Channel) ReadInputRegisters(ctx context.Context, address byte, start, quantity uint16, timeout time.Duration) ([]uint16, error) {
	resp, err := c.Send(ctx, address, rtu.FuncReadInputRegisters, be16Pair(start, quantity), timeout)
	if err != nil {
		return nil, err
	}
	return decodeRegisterResponse(resp.Data(), quantity)
}

// WriteSingleCoil sends FC 0x05.
func (c *Channel) WriteSingleCoil(ctx context.Context, address byte, coilAddress uint16, value bool, timeout time.Duration) error {
	raw := uint16(0x0000)
	if value {
		raw = 0xFF00
	}
	_, err := c.Send(ctx, address, rtu.FuncWriteSingleCoil, be16Pair(coilAddress, raw), timeout)
	return err
}

// WriteSingleRegister sends FC 0x06.
func (c *Channel) WriteSingleRegister(ctx context.Context, address byte, regAddress, value uint16, timeout time.Duration) error {
	_, err := c.Send(ctx, address, rtu.FuncWriteSingleRegister, be16Pair(regAddress, value), timeout)
	return err
}

// WriteMultipleCoils sends FC 0x0F.
func (c *Channel) WriteMultipleCoils(ctx context.Context, address byte, start uint16, values []bool, timeout time.Duration) error {
	packed := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	data := make([]byte, 5+len(packed))
	binary.BigEndian.PutUint16(data[0:2], start)
	binary.BigEndian.PutUint16(data[2:4], uint16(len(values)))
	data[4] = byte(len(packed))
	copy(data[5:], packed)

	_, err := c.Send(ctx, address, rtu.FuncWriteMultipleCoils, data, timeout)
	return err
}

// WriteMultipleRegisters sends FC 0x10.
func (c *Channel) WriteMultipleRegisters(ctx context.Context, address byte, start uint16, values []uint16, timeout time.Duration) error {
	data := make([]byte, 5+2*len(values))
	binary.BigEndian.PutUint16(data[0:2], start)
	binary.BigEndian.PutUint16(data[2:4], uint16(len(values)))
	data[4] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[5+2*i:], v)
	}

	_, err := c.Send(ctx, address, rtu.FuncWriteMultipleRegister, data, timeout)
	return err
}

// Diagnostics sends FC 0x08 with the given sub-function and 2-byte data
// field, returning the echoed data field verbatim.
func (c *Channel) Diagnostics(ctx context.Context, address byte, subFunc uint16, data uint16, timeout time.Duration) ([]byte, error) {
	resp, err := c.Send(ctx, address, rtu.FuncDiagnostics, be16Pair(subFunc, data), timeout)
	if err != nil {
		return nil, err
	}
	return resp.Data(), nil
}

// Custom sends an arbitrary function code and payload — the escape hatch
// for FC 0x11 (Report Server ID) and any other custom-slot function code
// the target server implements.
func (c *Channel) Custom(ctx context.Context, address, code byte, data []byte, timeout time.Duration) (*rtu.Packet, error) {
	return c.Send(ctx, address, code, data, timeout)
}

func be16Pair(a, b uint16) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], a)
	binary.BigEndian.PutUint16(out[2:4], b)
	return out
}

func decodeBitResponse(data []byte, quantity uint16) ([]bool, error) {
	if len(data) < 1 || int(data[0]) != len(data)-1 {
		return nil, fmt.Errorf("client: malformed bit response")
	}
	packed := data[1:]
	out := make([]bool, quantity)
	for i := range out {
		out[i] = packed[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}

func decodeRegisterResponse(data []byte, quantity uint16) ([]uint16, error) {
	if len(data) < 1 || int(data[0]) != len(data)-1 || len(data)-1 != 2*int(quantity) {
		return nil, fmt.Errorf("client: malformed register response")
	}
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[1+2*i:])
	}
	return out, nil
}
