// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import "testing"

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	var pkt Packet
	pkt.SetCode(FuncReadHoldingRegisters)
	if err := pkt.SetData([]byte{0x00, 0x6B, 0x00, 0x03}); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	raw, err := pkt.Encode(0x11)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded Packet
	if err := decoded.Decode(raw); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Node != 0x11 {
		t.Errorf("expected node 0x11, got %#02x", decoded.Node)
	}
	if decoded.Code() != FuncReadHoldingRegisters {
		t.Errorf("unexpected code %#02x", decoded.Code())
	}
	if string(decoded.Data()) != string(pkt.Data()) {
		t.Errorf("data mismatch: got % X, want % X", decoded.Data(), pkt.Data())
	}
}

func TestPacketDecodeRejectsBadCRC(t *testing.T) {
	var pkt Packet
	if err := pkt.Decode([]byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00}); err == nil {
		t.Fatal("expected CRC mismatch error")
	}
}

func TestPacketDecodeRejectsShortFrame(t *testing.T) {
	var pkt Packet
	if err := pkt.Decode([]byte{0x11, 0x03}); err == nil {
		t.Fatal("expected short-frame error")
	}
}

func TestPacketIsException(t *testing.T) {
	var pkt Packet
	pkt.SetCode(FuncReadHoldingRegisters | ExceptionBit)
	if !pkt.IsException() {
		t.Error("expected IsException to be true")
	}
}

func TestKnownAnswerCRC(t *testing.T) {
	// §4.3/§6 known-answer vector, also used by the teacher's crc_test.go.
	got := CRC16([]byte{0x02, 0x07})
	if got != 0x1241 {
		t.Errorf("CRC16(0x02 0x07) = %#04x, want 0x1241", got)
	}
}
