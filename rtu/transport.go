// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"sync"
	"time"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
)

// FrameHandler is invoked once per reassembled RTU frame. err is non-nil
// when the frame failed CRC validation or was shorter than MinADUSize — the
// caller still sees the raw event so comm-error counters (§4.5's bus
// comm-error count) can be incremented by whatever owns that frame.
type FrameHandler func(pkt *Packet, err error)

// TxCompleteHandler is invoked once per Transmit, mirroring the byte-pipe
// adapter contract's single tx_complete_cb guarantee (§4.2).
type TxCompleteHandler func()

// Transport reassembles a continuous byte stream into RTU frames using the
// 3.5-character silent-interval rule (§4.3's "control_and_wait" state) and
// renders outgoing packets into the wire format. One Transport owns exactly
// one byte-pipe port; the per-port registry the spec calls for (§9: "no
// package-level globals") is simply one *Transport per port, held by
// whatever assembles a Stack (client/server channel), not a package
// singleton.
type Transport struct {
	pipe   bytepipe.Pipe
	port   int
	thresh Thresholds

	mu       sync.Mutex
	buf      []byte
	timer    *time.Timer
	onFrame  FrameHandler
	onTxDone TxCompleteHandler
	closed   bool

	rxPkt Packet
	rxErr error
}

// NewTransport constructs a Transport for port at baud, delivering
// reassembled frames to onFrame. onTxDone may be nil.
func NewTransport(pipe bytepipe.Pipe, port int, baud int, onFrame FrameHandler, onTxDone TxCompleteHandler) *Transport {
	return &Transport{
		pipe:     pipe,
		port:     port,
		thresh:   ComputeThresholds(baud),
		onFrame:  onFrame,
		onTxDone: onTxDone,
	}
}

// Open initializes the underlying byte pipe and starts frame reassembly.
func (t *Transport) Open(cfg bytepipe.PortConfig) error {
	return t.pipe.Init(t.port, cfg, t.handleTxComplete, t.handleReceived)
}

// Close shuts the transport down, stopping any pending silence timer.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	return t.pipe.Close(t.port)
}

// handleReceived is the byte-pipe data_received_cb: it appends to the
// in-progress frame buffer and (re)arms the inter-frame silence timer. A
// frame is considered complete, and handed to onFrame, only once the bus
// has been silent for at least the 3.5-character-time threshold — the
// portable stand-in for the embedded state machine's own tick-driven
// control_and_wait state (§4.3, §9).
func (t *Transport) handleReceived(_ int, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.buf = append(t.buf, data...)

	if t.timer != nil {
		t.timer.Stop()
	}
	gap := time.Duration(t.thresh.InterFrameTicks) * tickResolution * time.Microsecond
	t.timer = time.AfterFunc(gap, t.flush)
}

// flush decodes the accumulated buffer as one RTU ADU and reports it,
// clearing the buffer for the next frame regardless of success.
func (t *Transport) flush() {
	t.mu.Lock()
	if t.closed || len(t.buf) == 0 {
		t.mu.Unlock()
		return
	}
	raw := t.buf
	t.buf = nil
	t.mu.Unlock()

	var pkt Packet
	err := pkt.Decode(raw)

	t.mu.Lock()
	t.rxPkt = pkt
	t.rxErr = err
	t.mu.Unlock()

	if t.onFrame != nil {
		t.onFrame(&pkt, err)
	}
}

// GetRxPacket returns the most recently reassembled RX packet and its
// decode error, per §4.3's exclusive packet-accessor contract ("the channel
// must use get_tx_packet/get_rx_packet rather than accessing fields
// directly"). A Dispatcher-routed caller that only received a routing
// event (carrying no payload of its own, per §4.1's event record) fetches
// the packet here instead of receiving it through onFrame.
func (t *Transport) GetRxPacket() (*Packet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pkt := t.rxPkt
	return &pkt, t.rxErr
}

func (t *Transport) handleTxComplete(_ int) {
	if t.onTxDone != nil {
		t.onTxDone()
	}
}

// Send encodes pkt addressed to addr and transmits it on the underlying
// pipe. It returns false if the pipe rejected the transmit outright (the
// bundled pipes reject a port that was never initialized); a true result means the transmit was accepted for asynchronous
// delivery, not that it has completed — completion is signaled later via
// the TxCompleteHandler (§9, Open Question b).
func (t *Transport) Send(pkt *Packet, addr byte) (bool, error) {
	frame, err := pkt.Encode(addr)
	if err != nil {
		return false, err
	}
	return t.pipe.Transmit(t.port, frame), nil
}
