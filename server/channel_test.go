// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package server

import (
	"testing"
	"time"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
	"github.com/ffutop/modbus-rtu-stack/rtu"
)

func newTestChannel(t *testing.T, addr byte, cb Callbacks) (*Channel, *bytepipe.LoopbackPipe, chan []byte) {
	t.Helper()
	serverSide, clientSide := bytepipe.NewLoopbackPair()

	received := make(chan []byte, 4)
	if err := clientSide.Init(1, bytepipe.PortConfig{}, func(int) {}, func(_ int, data []byte) {
		received <- data
	}); err != nil {
		t.Fatalf("clientSide.Init: %v", err)
	}

	ch := NewChannel(addr, nil, cb, nil)
	tr := rtu.NewTransport(serverSide, 1, 19200, ch.HandleFrame, nil)
	if err := tr.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("tr.Open: %v", err)
	}
	ch.transport = tr
	return ch, clientSide, received
}

func sendRequest(t *testing.T, pipe *bytepipe.LoopbackPipe, addr, code byte, data []byte) {
	t.Helper()
	var pkt rtu.Packet
	pkt.SetCode(code)
	if err := pkt.SetData(data); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	raw, err := pkt.Encode(addr)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !pipe.Transmit(1, raw) {
		t.Fatalf("Transmit rejected")
	}
}

func TestChannelReadHoldingRegisters(t *testing.T) {
	regs := map[uint16]uint16{0: 0x1234, 1: 0x5678}
	cb := Callbacks{
		ReadHoldingRegisters: func(address, quantity uint16) ([]uint16, byte) {
			out := make([]uint16, quantity)
			for i := range out {
				out[i] = regs[address+uint16(i)]
			}
			return out, 0
		},
	}
	_, pipe, received := newTestChannel(t, 0x11, cb)

	sendRequest(t, pipe, 0x11, rtu.FuncReadHoldingRegisters, []byte{0x00, 0x00, 0x00, 0x02})

	select {
	case raw := <-received:
		var resp rtu.Packet
		if err := resp.Decode(raw); err != nil {
			t.Fatalf("Decode response: %v", err)
		}
		if resp.Code() != rtu.FuncReadHoldingRegisters {
			t.Fatalf("unexpected response code %#02x", resp.Code())
		}
		want := []byte{0x04, 0x12, 0x34, 0x56, 0x78}
		if string(resp.Data()) != string(want) {
			t.Errorf("unexpected response data: % X, want % X", resp.Data(), want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestChannelIllegalFunctionWhenSlotNil(t *testing.T) {
	_, pipe, received := newTestChannel(t, 0x11, Callbacks{})
	sendRequest(t, pipe, 0x11, rtu.FuncReadCoils, []byte{0x00, 0x00, 0x00, 0x01})

	select {
	case raw := <-received:
		var resp rtu.Packet
		if err := resp.Decode(raw); err != nil {
			t.Fatalf("Decode response: %v", err)
		}
		if !resp.IsException() {
			t.Fatalf("expected exception response")
		}
		if resp.Data()[0] != rtu.ExceptionIllegalFunction {
			t.Errorf("expected illegal-function exception, got %#02x", resp.Data()[0])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exception response")
	}
}

func TestChannelBroadcastWriteProducesNoResponse(t *testing.T) {
	written := make(chan uint16, 1)
	cb := Callbacks{
		WriteSingleRegister: func(address, value uint16) byte {
			written <- value
			return 0
		},
	}
	_, pipe, received := newTestChannel(t, 0x11, cb)

	sendRequest(t, pipe, rtu.AddressBroadcast, rtu.FuncWriteSingleRegister, []byte{0x00, 0x01, 0x00, 0x2A})

	select {
	case v := <-written:
		if v != 0x2A {
			t.Errorf("unexpected written value %#04x", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast write to be applied")
	}

	select {
	case raw := <-received:
		t.Fatalf("expected no response to broadcast, got % X", raw)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestChannelDiagnosticsQueryDataEchoes(t *testing.T) {
	_, pipe, received := newTestChannel(t, 0x11, Callbacks{})
	sendRequest(t, pipe, 0x11, rtu.FuncDiagnostics, []byte{0x00, 0x00, 0xCA, 0xFE})

	select {
	case raw := <-received:
		var resp rtu.Packet
		if err := resp.Decode(raw); err != nil {
			t.Fatalf("Decode response: %v", err)
		}
		want := []byte{0x00, 0x00, 0xCA, 0xFE}
		if string(resp.Data()) != string(want) {
			t.Errorf("unexpected echo: % X, want % X", resp.Data(), want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for diagnostics echo")
	}
}

func TestChannelReportServerID(t *testing.T) {
	cb := Callbacks{Custom: NewReportServerIDCustomFunc([]byte("MODRTU"), func() bool { return true })}
	_, pipe, received := newTestChannel(t, 0x11, cb)

	sendRequest(t, pipe, 0x11, rtu.FuncReportServerID, nil)

	select {
	case raw := <-received:
		var resp rtu.Packet
		if err := resp.Decode(raw); err != nil {
			t.Fatalf("Decode response: %v", err)
		}
		data := resp.Data()
		if data[0] != byte(len("MODRTU")+1) {
			t.Errorf("unexpected byte count %d", data[0])
		}
		if string(data[1:len(data)-1]) != "MODRTU" {
			t.Errorf("unexpected server id %q", data[1:len(data)-1])
		}
		if data[len(data)-1] != 0xFF {
			t.Errorf("expected run indicator 0xFF, got %#02x", data[len(data)-1])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for report-server-id response")
	}
}
