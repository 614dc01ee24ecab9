// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package integration exercises the concrete end-to-end wire scenarios
// from §8 of the specification this module implements, wiring together
// bytepipe, rtu, server, client and datatable exactly as a real
// deployment would — none of those packages can see each other's tests,
// so the scenarios live here instead.
package integration

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
	"github.com/ffutop/modbus-rtu-stack/client"
	"github.com/ffutop/modbus-rtu-stack/datatable"
	"github.com/ffutop/modbus-rtu-stack/dispatcher"
	"github.com/ffutop/modbus-rtu-stack/osal"
	"github.com/ffutop/modbus-rtu-stack/rtu"
	"github.com/ffutop/modbus-rtu-stack/server"
)

// linkPort is the single port number both ends of the loopback pair are
// opened on. LoopbackPipe.Transmit delivers to its peer's state keyed by
// this same port number (bytepipe/loopback.go) — unlike a real two-ended
// serial cable, the two LoopbackPipe instances are looked up by identical
// port numbers, not by any port-to-port mapping, so both sides must agree
// on one value, exactly as rtu/transport_test.go's pair does.
const linkPort = 1

const unitAddress = 0x0A // slave addr 10

type harness struct {
	model      *datatable.Model
	channel    *server.Channel
	client     *client.Channel
	clientSide *bytepipe.LoopbackPipe
	recv       chan []byte
}

// sniffPipe wraps a Pipe and fans every received burst out to sniff in
// addition to the real onReceived callback it was constructed with, so a
// test can observe raw wire traffic without stealing the single receive
// registration the transport under test needs for itself.
type sniffPipe struct {
	bytepipe.Pipe
	sniff chan<- []byte
}

func (s *sniffPipe) Init(port int, cfg bytepipe.PortConfig, onTxComplete bytepipe.TxCompleteFunc, onReceived bytepipe.ReceivedFunc) error {
	return s.Pipe.Init(port, cfg, onTxComplete, func(p int, data []byte) {
		cp := append([]byte(nil), data...)
		select {
		case s.sniff <- cp:
		default:
		}
		onReceived(p, data)
	})
}

func newHarness(t *testing.T, customFn server.CustomFunc) *harness {
	t.Helper()
	serverSide, clientSide := bytepipe.NewLoopbackPair()

	model := datatable.NewModel(nil)
	cb := model.Callbacks()
	cb.Custom = customFn

	// The server channel is driven through a Dispatcher rather than by
	// wiring the transport's frame callback to HandleFrame directly, so
	// this end-to-end harness exercises the §4.4 event pump (C4) the same
	// way a deployed process does (cmd/modbus-rtu-stackd/main.go), not
	// only the per-package unit tests that call HandleFrame synchronously.
	ch := server.NewChannel(unitAddress, nil, cb, nil)
	serverBackend := osal.NewPreemptive(8)
	serverDisp := dispatcher.New(serverBackend)
	serverCtx, stopServerDisp := context.WithCancel(context.Background())
	t.Cleanup(stopServerDisp)
	go serverDisp.Run(serverCtx)

	serverTransport := rtu.NewTransport(serverSide, linkPort, 19200, func(_ *rtu.Packet, _ error) {
		_ = serverDisp.Post(osal.Event{ID: osal.EventPDUReceived, Context: ch}, false)
	}, nil)
	if err := serverTransport.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("serverTransport.Open: %v", err)
	}
	ch.AttachTransport(serverTransport)

	recv := make(chan []byte, 8)
	tappedClientSide := &sniffPipe{Pipe: clientSide, sniff: recv}

	backend := osal.NewPreemptive(16)
	cl := client.NewChannel(backend, nil, 100*time.Millisecond, nil)
	clientTransport := rtu.NewTransport(tappedClientSide, linkPort, 19200, cl.HandleFrame, nil)
	if err := clientTransport.Open(bytepipe.PortConfig{}); err != nil {
		t.Fatalf("clientTransport.Open: %v", err)
	}
	cl.AttachTransport(clientTransport)

	return &harness{model: model, channel: ch, client: cl, clientSide: clientSide, recv: recv}
}

func TestScenario1ReadTwoHoldingRegisters(t *testing.T) {
	h := newHarness(t, nil)
	h.model.WriteMultipleRegisters(0x9C40, []uint16{0x789A, 0xA51F})

	regs, err := h.client.ReadHoldingRegisters(context.Background(), unitAddress, 0x9C40, 2, time.Second)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if regs[0] != 0x789A || regs[1] != 0xA51F {
		t.Errorf("unexpected registers: %#04x %#04x", regs[0], regs[1])
	}
}

func TestScenario2WriteSingleCoilOn(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.client.WriteSingleCoil(context.Background(), unitAddress, 0, true, time.Second); err != nil {
		t.Fatalf("WriteSingleCoil: %v", err)
	}
	bits, _ := h.model.ReadCoils(0, 1)
	if !bits[0] {
		t.Errorf("expected coil 0 to be ON")
	}
}

func TestScenario3ReadExceptionIllegalDataAddress(t *testing.T) {
	h := newHarness(t, nil)
	// Only discrete inputs 10000,10001 exist (FC 0x02); 10000..10002 overruns.
	h.model.DiscreteInputs = h.model.DiscreteInputs[:10002]

	_, err := h.client.ReadDiscreteInputs(context.Background(), unitAddress, 10000, 3, time.Second)
	if err == nil {
		t.Fatal("expected an exception error")
	}
}

func TestScenario4BroadcastWriteThenRead(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.client.WriteSingleRegister(context.Background(), rtu.AddressBroadcast, 0x9C40, 0x03E8, time.Second); err != nil {
		t.Fatalf("broadcast WriteSingleRegister: %v", err)
	}

	select {
	case raw := <-h.recv:
		t.Fatalf("expected no response to broadcast, got % X", raw)
	case <-time.After(200 * time.Millisecond):
	}

	regs, err := h.client.ReadHoldingRegisters(context.Background(), unitAddress, 0x9C40, 1, time.Second)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters after broadcast: %v", err)
	}
	if regs[0] != 0x03E8 {
		t.Errorf("expected 0x03E8 after broadcast write, got %#04x", regs[0])
	}
}

func TestScenario5GarbledCRCIncrementsCommErrorCounter(t *testing.T) {
	h := newHarness(t, nil)
	before := h.channel.Counters().BusCommErrorCount

	var pkt rtu.Packet
	pkt.SetCode(rtu.FuncReadHoldingRegisters)
	if err := pkt.SetData([]byte{0x9C, 0x40, 0x00, 0x02}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	raw, err := pkt.Encode(unitAddress)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	garbled := append([]byte(nil), raw...)
	garbled[len(garbled)-1] ^= 0xFF

	if !h.clientSide.Transmit(linkPort, garbled) {
		t.Fatalf("Transmit rejected")
	}

	time.Sleep(100 * time.Millisecond)
	after := h.channel.Counters().BusCommErrorCount
	if after != before+1 {
		t.Errorf("expected bus comm error count to increment by 1, got delta %d", after-before)
	}

	select {
	case raw := <-h.recv:
		t.Fatalf("expected no response to garbled frame, got % X", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScenario6ReportServerID(t *testing.T) {
	h := newHarness(t, server.NewReportServerIDCustomFunc([]byte{0x12, 0x34}, func() bool { return true }))

	resp, err := h.client.Custom(context.Background(), unitAddress, rtu.FuncReportServerID, nil, time.Second)
	if err != nil {
		t.Fatalf("Custom: %v", err)
	}
	want := []byte{0x03, 0x12, 0x34, 0xFF}
	if !bytes.Equal(resp.Data(), want) {
		t.Errorf("unexpected report-server-id payload: % X, want % X", resp.Data(), want)
	}
}
