// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
	"github.com/ffutop/modbus-rtu-stack/osal"
)

// NewBackend builds the osal.Backend described by b.
func (b BackendConfig) NewBackend() (*osal.Backend, error) {
	capacity := b.QueueCapacity
	if capacity <= 0 {
		capacity = 32
	}
	switch b.Mode {
	case "", "preemptive":
		return osal.NewPreemptive(capacity), nil
	case "cooperative":
		return osal.NewCooperative(capacity), nil
	default:
		return nil, fmt.Errorf("config: unknown backend mode %q", b.Mode)
	}
}

// PortConfig converts s into the bytepipe.PortConfig the real serial
// adapter expects.
func (s SerialConfig) PortConfig() bytepipe.PortConfig {
	parity := bytepipe.ParityNone
	switch s.Parity {
	case "E":
		parity = bytepipe.ParityEven
	case "O":
		parity = bytepipe.ParityOdd
	}

	return bytepipe.PortConfig{
		Device:             s.Device,
		BaudRate:           s.BaudRate,
		DataBits:           s.DataBits,
		StopBits:           s.StopBits,
		Parity:             parity,
		RS485:              s.RS485,
		DelayRtsBeforeSend: uint32(s.DelayRtsBeforeSend.Microseconds()),
		DelayRtsAfterSend:  uint32(s.DelayRtsAfterSend.Microseconds()),
		RtsHighDuringSend:  s.RtsHighDuringSend,
		RtsHighAfterSend:   s.RtsHighAfterSend,
		RxDuringTx:         s.RxDuringTx,
	}
}
