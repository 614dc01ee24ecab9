// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bytepipe

import (
	"bytes"
	"testing"
	"time"
)

func TestLoopbackPairDeliversBytes(t *testing.T) {
	a, b := NewLoopbackPair()

	received := make(chan []byte, 1)
	txDone := make(chan struct{}, 1)

	if err := a.Init(1, PortConfig{}, func(int) { txDone <- struct{}{} }, func(int, []byte) {}); err != nil {
		t.Fatalf("a.Init: %v", err)
	}
	if err := b.Init(1, PortConfig{}, func(int) {}, func(_ int, data []byte) { received <- data }); err != nil {
		t.Fatalf("b.Init: %v", err)
	}

	if !a.Transmit(1, []byte{0x0A, 0x03, 0x00, 0x00}) {
		t.Fatalf("expected Transmit to be accepted")
	}

	select {
	case data := <-received:
		if !bytes.Equal(data, []byte{0x0A, 0x03, 0x00, 0x00}) {
			t.Errorf("unexpected payload: % X", data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	select {
	case <-txDone:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tx-complete callback")
	}
}

func TestTickSourceAdvances(t *testing.T) {
	ts := NewTickSource()
	first := ts.Count()
	time.Sleep(200 * time.Microsecond)
	second := ts.Count()
	if second == first {
		t.Fatalf("expected tick count to advance")
	}
}
