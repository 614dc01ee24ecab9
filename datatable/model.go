// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package datatable provides a reference in-memory data table and the
// glue that wires it into a server.Channel's six callback slots. It is not
// itself part of the core RTU stack — a real deployment can implement
// server.Callbacks directly against its own process data — but every
// worked example and test in this module uses it as the default backing
// store, the way the teacher's internal/local-slave/model.DataModel backs
// its LocalSlave.
package datatable

import (
	"sync"

	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// MaxAddress is the highest addressable offset in any table (§3, §4.5):
// the full 16-bit address space.
const MaxAddress = 65535

// Model holds Modbus data in memory across the full 16-bit address space
// of each of the four tables, adapted from the teacher's
// internal/local-slave/model.DataModel — generalized to []bool coils
// instead of a packed-byte slice so it composes directly with
// server.ReadBitsFunc/WriteMultipleCoilsFunc's []bool signature.
type Model struct {
	mu sync.RWMutex

	Coils            []bool
	DiscreteInputs   []bool
	HoldingRegisters []uint16
	InputRegisters   []uint16

	onWrite func(table TableType, address, quantity uint16)
}

// TableType identifies which of the four tables a write landed in, passed
// to a Model's onWrite hook the way the teacher's
// persistence.Storage.OnWrite does (internal/local-slave/persistence/storage.go).
type TableType int

const (
	TableCoils TableType = iota
	TableDiscreteInputs
	TableHoldingRegisters
	TableInputRegisters
)

// NewModel creates a Model initialized to zero/false across every table.
// onWrite, if non-nil, is invoked after every successful write — the hook
// a persistence.Storage uses to flush changes (§ambient persistence).
func NewModel(onWrite func(table TableType, address, quantity uint16)) *Model {
	return &Model{
		Coils:            make([]bool, MaxAddress+1),
		DiscreteInputs:   make([]bool, MaxAddress+1),
		HoldingRegisters: make([]uint16, MaxAddress+1),
		InputRegisters:   make([]uint16, MaxAddress+1),
		onWrite:          onWrite,
	}
}

func validateRange(address, quantity uint16, tableLen int) bool {
	if quantity == 0 {
		return false
	}
	return int(address)+int(quantity) <= tableLen
}

// ReadCoils implements server.ReadBitsFunc against Coils.
func (m *Model) ReadCoils(address, quantity uint16) ([]bool, byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !validateRange(address, quantity, len(m.Coils)) {
		return nil, rtu.ExceptionIllegalDataAddress
	}
	out := make([]bool, quantity)
	copy(out, m.Coils[address:int(address)+int(quantity)])
	return out, 0
}

// ReadDiscreteInputs implements server.ReadBitsFunc against DiscreteInputs.
func (m *Model) ReadDiscreteInputs(address, quantity uint16) ([]bool, byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !validateRange(address, quantity, len(m.DiscreteInputs)) {
		return nil, rtu.ExceptionIllegalDataAddress
	}
	out := make([]bool, quantity)
	copy(out, m.DiscreteInputs[address:int(address)+int(quantity)])
	return out, 0
}

// ReadHoldingRegisters implements server.ReadRegistersFunc against
// HoldingRegisters.
func (m *Model) ReadHoldingRegisters(address, quantity uint16) ([]uint16, byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !validateRange(address, quantity, len(m.HoldingRegisters)) {
		return nil, rtu.ExceptionIllegalDataAddress
	}
	out := make([]uint16, quantity)
	copy(out, m.HoldingRegisters[address:int(address)+int(quantity)])
	return out, 0
}

// ReadInputRegisters implements server.ReadRegistersFunc against
// InputRegisters.
func (m *Model) ReadInputRegisters(address, quantity uint16) ([]uint16, byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !validateRange(address, quantity, len(m.InputRegisters)) {
		return nil, rtu.ExceptionIllegalDataAddress
	}
	out := make([]uint16, quantity)
	copy(out, m.InputRegisters[address:int(address)+int(quantity)])
	return out, 0
}

// WriteSingleCoil implements server.WriteSingleCoilFunc.
func (m *Model) WriteSingleCoil(address uint16, value bool) byte {
	if !validateRange(address, 1, len(m.Coils)) {
		return rtu.ExceptionIllegalDataAddress
	}
	m.mu.Lock()
	m.Coils[address] = value
	m.mu.Unlock()
	m.notifyWrite(TableCoils, address, 1)
	return 0
}

// WriteSingleRegister implements server.WriteSingleRegisterFunc.
func (m *Model) WriteSingleRegister(address uint16, value uint16) byte {
	if !validateRange(address, 1, len(m.HoldingRegisters)) {
		return rtu.ExceptionIllegalDataAddress
	}
	m.mu.Lock()
	m.HoldingRegisters[address] = value
	m.mu.Unlock()
	m.notifyWrite(TableHoldingRegisters, address, 1)
	return 0
}

// WriteMultipleCoils implements server.WriteMultipleCoilsFunc.
func (m *Model) WriteMultipleCoils(address uint16, values []bool) byte {
	if !validateRange(address, uint16(len(values)), len(m.Coils)) {
		return rtu.ExceptionIllegalDataAddress
	}
	m.mu.Lock()
	copy(m.Coils[address:], values)
	m.mu.Unlock()
	m.notifyWrite(TableCoils, address, uint16(len(values)))
	return 0
}

// WriteMultipleRegisters implements server.WriteMultipleRegistersFunc.
func (m *Model) WriteMultipleRegisters(address uint16, values []uint16) byte {
	if !validateRange(address, uint16(len(values)), len(m.HoldingRegisters)) {
		return rtu.ExceptionIllegalDataAddress
	}
	m.mu.Lock()
	copy(m.HoldingRegisters[address:], values)
	m.mu.Unlock()
	m.notifyWrite(TableHoldingRegisters, address, uint16(len(values)))
	return 0
}

func (m *Model) notifyWrite(table TableType, address, quantity uint16) {
	if m.onWrite != nil {
		m.onWrite(table, address, quantity)
	}
}
