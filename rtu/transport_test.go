// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"testing"
	"time"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
)

func TestTransportRoundTripsFrame(t *testing.T) {
	a, b := bytepipe.NewLoopbackPair()

	frames := make(chan *Packet, 1)
	errs := make(chan error, 1)

	rx := NewTransport(b, 1, 19200, func(pkt *Packet, err error) {
		if err != nil {
			errs <- err
			return
		}
		frames <- pkt
	}, nil)
	if err := rx.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("rx.Open: %v", err)
	}
	defer rx.Close()

	tx := NewTransport(a, 1, 19200, nil, nil)
	if err := tx.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("tx.Open: %v", err)
	}
	defer tx.Close()

	var pkt Packet
	pkt.SetCode(FuncReadHoldingRegisters)
	if err := pkt.SetData([]byte{0x00, 0x00, 0x00, 0x02}); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	ok, err := tx.Send(&pkt, 0x11)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !ok {
		t.Fatalf("expected Send to be accepted")
	}

	select {
	case got := <-frames:
		if got.Node != 0x11 {
			t.Errorf("expected node 0x11, got %#02x", got.Node)
		}
		if got.Code() != FuncReadHoldingRegisters {
			t.Errorf("unexpected code %#02x", got.Code())
		}
	case err := <-errs:
		t.Fatalf("unexpected frame error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reassembled frame")
	}
}

func TestTransportReportsCRCMismatch(t *testing.T) {
	a, b := bytepipe.NewLoopbackPair()

	errs := make(chan error, 1)
	rx := NewTransport(b, 1, 19200, func(_ *Packet, err error) {
		errs <- err
	}, nil)
	if err := rx.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("rx.Open: %v", err)
	}
	defer rx.Close()

	garbled := []byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x02, 0xDE, 0xAD}
	a.Transmit(1, garbled)

	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("expected CRC error, got nil")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame error")
	}
}
