// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package client

import (
	"context"
	"testing"
	"time"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
	"github.com/ffutop/modbus-rtu-stack/osal"
	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// echoServer answers every request addressed to it with FC 0x03's wire
// shape (byte-count + 2 bytes per requested register, all zero), just
// enough to exercise the client channel's request/response rendezvous
// without pulling in the server package.
func startEchoServer(t *testing.T, pipe bytepipe.Pipe, address byte) *rtu.Transport {
	t.Helper()
	var tr *rtu.Transport
	tr = rtu.NewTransport(pipe, 1, 19200, func(pkt *rtu.Packet, err error) {
		if err != nil || pkt.Node != address {
			return
		}
		var resp rtu.Packet
		resp.SetCode(pkt.Code())
		quantity := pkt.Data()[2]<<8 | pkt.Data()[3]
		respData := make([]byte, 1+2*int(quantity))
		respData[0] = byte(2 * quantity)
		if err := resp.SetData(respData); err != nil {
			t.Errorf("SetData: %v", err)
			return
		}
		if ok, err := tr.Send(&resp, address); !ok || err != nil {
			t.Errorf("echo Send: ok=%v err=%v", ok, err)
		}
	}, nil)
	if err := tr.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("echo tr.Open: %v", err)
	}
	return tr
}

func TestChannelSendUnicastRoundTrip(t *testing.T) {
	serverSide, clientSide := bytepipe.NewLoopbackPair()
	startEchoServer(t, serverSide, 0x11)

	backend := osal.NewPreemptive(8)
	ch := NewChannel(backend, nil, 10*time.Millisecond, nil)
	clientTransport := rtu.NewTransport(clientSide, 1, 19200, ch.HandleFrame, nil)
	ch.transport = clientTransport
	if err := clientTransport.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("clientTransport.Open: %v", err)
	}

	regs, err := ch.ReadHoldingRegisters(context.Background(), 0x11, 0, 2, time.Second)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("expected 2 registers, got %d", len(regs))
	}
}

func TestChannelSendTimesOutWithNoServer(t *testing.T) {
	_, clientSide := bytepipe.NewLoopbackPair()

	backend := osal.NewPreemptive(8)
	ch := NewChannel(backend, nil, 10*time.Millisecond, nil)
	tr := rtu.NewTransport(clientSide, 1, 19200, ch.HandleFrame, nil)
	ch.transport = tr
	if err := tr.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("tr.Open: %v", err)
	}

	_, err := ch.ReadHoldingRegisters(context.Background(), 0x11, 0, 2, 100*time.Millisecond)
	if err != ErrRequestTimedOut {
		t.Fatalf("expected ErrRequestTimedOut, got %v", err)
	}
}

func TestChannelSendRejectedUnderCooperativeBackend(t *testing.T) {
	_, clientSide := bytepipe.NewLoopbackPair()
	backend := osal.NewCooperative(8)
	tr := rtu.NewTransport(clientSide, 1, 19200, nil, nil)
	ch := NewChannel(backend, tr, 10*time.Millisecond, nil)

	_, err := ch.ReadHoldingRegisters(context.Background(), 0x11, 0, 2, time.Second)
	if err != ErrCooperativeUnsupported {
		t.Fatalf("expected ErrCooperativeUnsupported, got %v", err)
	}
}
