// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package bytepipe is the abstract contract the RTU transport is driven
// over: async byte transmit plus a callback-delivered receive stream, and a
// monotonic 50 µs-resolution tick source. The concrete byte-level serial
// driver is, per the spec, an external collaborator — this package ships
// one real adapter (SerialPipe) and one in-memory test double (LoopbackPipe)
// so the RTU state machine above it is actually exercisable.
package bytepipe

// ReceivedFunc is invoked for each burst of received bytes, at a rate that
// lets the RTU layer observe the 1.5/3.5 character-time gaps (§4.2).
type ReceivedFunc func(port int, data []byte)

// TxCompleteFunc is invoked exactly once per Transmit call.
type TxCompleteFunc func(port int)

// Pipe is the byte-level transport the RTU layer rides on.
type Pipe interface {
	// Init configures the pipe for port at the given serial parameters and
	// registers the two callbacks. It must be called before Transmit.
	Init(port int, cfg PortConfig, onTxComplete TxCompleteFunc, onReceived ReceivedFunc) error

	// Transmit starts an asynchronous transmit of data on port and reports
	// whether it was accepted. Acceptance ("transmit success", §9 Open
	// Question (b)) is not completion — onTxComplete fires later, exactly
	// once, when the bytes have actually left the wire.
	Transmit(port int, data []byte) bool

	// Close releases any resources associated with port.
	Close(port int) error
}

// Parity mirrors the three values the Modbus-IDA standard allows for RTU
// (§6): even by default, or none (with 2 stop bits).
type Parity byte

const (
	ParityEven Parity = 'E'
	ParityOdd  Parity = 'O'
	ParityNone Parity = 'N'
)

// PortConfig is the serial line configuration §4.2's Init takes: baud,
// data/stop bits and parity. RS-485 fields are carried alongside for
// adapters that sit on a half-duplex transceiver (SerialPipe).
type PortConfig struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   Parity

	RS485              bool
	DelayRtsBeforeSend uint32 // microseconds
	DelayRtsAfterSend  uint32 // microseconds
	RtsHighDuringSend  bool
	RtsHighAfterSend   bool
	RxDuringTx         bool
}
