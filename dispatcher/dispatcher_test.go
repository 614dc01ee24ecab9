// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/ffutop/modbus-rtu-stack/osal"
)

type fakeContext struct {
	tag        ContextTag
	processed  chan osal.Event
	polled     chan struct{}
}

func newFakeContext(tag ContextTag) *fakeContext {
	return &fakeContext{tag: tag, processed: make(chan osal.Event, 4), polled: make(chan struct{}, 4)}
}

func (f *fakeContext) Process(evt osal.Event) { f.processed <- evt }
func (f *fakeContext) Poll() {
	select {
	case f.polled <- struct{}{}:
	default:
	}
}
func (f *fakeContext) Tag() ContextTag { return f.tag }

func TestDispatcherRoutesEventToTargetContext(t *testing.T) {
	backend := osal.NewPreemptive(8)
	d := New(backend)

	fc := newFakeContext(TagClientChannel)
	if err := d.Post(osal.Event{ID: osal.EventPDUReceived, Context: fc}, false); err != nil {
		t.Fatalf("Post: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	select {
	case evt := <-fc.processed:
		if evt.ID != osal.EventPDUReceived {
			t.Errorf("unexpected event id %v", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event to be routed")
	}
}

func TestDispatcherPollsRegisteredContexts(t *testing.T) {
	backend := osal.NewPreemptive(8)
	d := New(backend)

	fc := newFakeContext(TagServerChannel)
	d.StartPolling(fc)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	select {
	case <-fc.polled:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Poll to be called")
	}

	d.StopPolling(fc)
}

func TestDispatcherStartStopPollingEvents(t *testing.T) {
	backend := osal.NewPreemptive(8)
	d := New(backend)
	fc := newFakeContext(TagServerChannel)

	if err := d.Post(osal.Event{ID: osal.EventStartPolling, Context: fc}, false); err != nil {
		t.Fatalf("Post: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	select {
	case <-fc.polled:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Poll after StartPolling event")
	}
}
