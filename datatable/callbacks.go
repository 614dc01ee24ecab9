// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package datatable

import "github.com/ffutop/modbus-rtu-stack/server"

// Callbacks returns a server.Callbacks wired directly to m's methods, the
// drop-in data-table backing most deployments of this module will reach
// for first.
func (m *Model) Callbacks() server.Callbacks {
	return server.Callbacks{
		ReadCoils:              m.ReadCoils,
		ReadDiscreteInputs:     m.ReadDiscreteInputs,
		ReadHoldingRegisters:   m.ReadHoldingRegisters,
		ReadInputRegisters:     m.ReadInputRegisters,
		WriteSingleCoil:        m.WriteSingleCoil,
		WriteSingleRegister:    m.WriteSingleRegister,
		WriteMultipleCoils:     m.WriteMultipleCoils,
		WriteMultipleRegisters: m.WriteMultipleRegisters,
	}
}
