// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bytepipe

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/grid-x/serial"
)

// SerialPipe adapts a real UART, opened through github.com/grid-x/serial, to
// the Pipe contract. It is the only concrete non-test adapter this module
// ships, adapted from the teacher's serialPort (transport/rtu/serial.go:
// connect/close) and the RS-485 field wiring that transport/rtu/server.go
// and the old gateway.go plumbed from SerialConfig.
type SerialPipe struct {
	mu     sync.Mutex
	ports  map[int]*serialPortState
	readSz int
}

type serialPortState struct {
	port         io.ReadWriteCloser
	onTxComplete TxCompleteFunc
	onReceived   ReceivedFunc
	stopCh       chan struct{}
}

// NewSerialPipe creates a pipe whose read loop delivers bursts of up to
// readBurstSize bytes per ReceivedFunc call.
func NewSerialPipe(readBurstSize int) *SerialPipe {
	if readBurstSize <= 0 {
		readBurstSize = 256
	}
	return &SerialPipe{ports: make(map[int]*serialPortState), readSz: readBurstSize}
}

// Init opens the configured serial device and starts the background read
// loop that feeds onReceived.
func (p *SerialPipe) Init(port int, cfg PortConfig, onTxComplete TxCompleteFunc, onReceived ReceivedFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.ports[port]; exists {
		return fmt.Errorf("bytepipe: port %d already initialized", port)
	}

	sc := &serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   string(cfg.Parity),
	}
	if cfg.RS485 {
		sc.RS485 = serial.RS485Config{
			Enabled:            true,
			DelayRtsBeforeSend: cfg.DelayRtsBeforeSend,
			DelayRtsAfterSend:  cfg.DelayRtsAfterSend,
			RtsHighDuringSend:  cfg.RtsHighDuringSend,
			RtsHighAfterSend:   cfg.RtsHighAfterSend,
			RxDuringTx:         cfg.RxDuringTx,
		}
	}

	sp, err := serial.Open(sc)
	if err != nil {
		return fmt.Errorf("bytepipe: could not open %s: %w", cfg.Device, err)
	}

	state := &serialPortState{
		port:         sp,
		onTxComplete: onTxComplete,
		onReceived:   onReceived,
		stopCh:       make(chan struct{}),
	}
	p.ports[port] = state
	go p.readLoop(port, state)
	return nil
}

// readLoop mirrors the spirit of transport/rtu/server.go's scanLoop, but
// reports raw bursts instead of doing its own frame assembly — the RTU
// state machine that owns framing lives above this package.
func (p *SerialPipe) readLoop(port int, state *serialPortState) {
	buf := make([]byte, p.readSz)
	for {
		select {
		case <-state.stopCh:
			return
		default:
		}
		n, err := state.port.Read(buf)
		if err != nil {
			select {
			case <-state.stopCh:
				return
			default:
			}
			slog.Debug("bytepipe: serial read error", "port", port, "err", err)
			continue
		}
		if n == 0 {
			continue
		}
		burst := make([]byte, n)
		copy(burst, buf[:n])
		state.onReceived(port, burst)
	}
}

// Transmit writes data asynchronously and reports completion through
// onTxComplete exactly once, satisfying §4.2's "invoked exactly once per
// transmit call" regardless of whether the write succeeds.
func (p *SerialPipe) Transmit(port int, data []byte) bool {
	p.mu.Lock()
	state, ok := p.ports[port]
	p.mu.Unlock()
	if !ok {
		return false
	}

	go func() {
		if _, err := state.port.Write(data); err != nil {
			slog.Debug("bytepipe: serial write error", "port", port, "err", err)
		}
		state.onTxComplete(port)
	}()
	return true
}

// Close stops the read loop and closes the underlying serial port.
func (p *SerialPipe) Close(port int) error {
	p.mu.Lock()
	state, ok := p.ports[port]
	if ok {
		delete(p.ports, port)
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}
	close(state.stopCh)
	return state.port.Close()
}
