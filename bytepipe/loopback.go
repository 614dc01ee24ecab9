// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bytepipe

import "sync"

// LoopbackPipe is an in-memory Pipe used by tests, in the spirit of the
// teacher's mockPort (transport/rtu/client_test.go): no real I/O, bytes
// handed directly to the peer's receive callback so the RTU/client/server
// state machines can be driven deterministically.
type LoopbackPipe struct {
	mu    sync.Mutex
	state map[int]*loopbackPortState
	peer  *LoopbackPipe
}

type loopbackPortState struct {
	onTxComplete TxCompleteFunc
	onReceived   ReceivedFunc
}

// NewLoopbackPair returns two pipes wired back-to-back: bytes Transmit-ed on
// one are delivered, unmodified, to the other's onReceived, and vice versa —
// a null-modem cable with no physical layer underneath it.
func NewLoopbackPair() (a, b *LoopbackPipe) {
	a = &LoopbackPipe{state: make(map[int]*loopbackPortState)}
	b = &LoopbackPipe{state: make(map[int]*loopbackPortState)}
	a.peer, b.peer = b, a
	return a, b
}

// Init registers the callbacks for port; no physical configuration happens.
func (l *LoopbackPipe) Init(port int, _ PortConfig, onTxComplete TxCompleteFunc, onReceived ReceivedFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state[port] = &loopbackPortState{onTxComplete: onTxComplete, onReceived: onReceived}
	return nil
}

// Transmit hands data to the peer's onReceived callback and reports
// completion on this pipe's onTxComplete, both asynchronously, matching the
// real SerialPipe's timing characteristics closely enough to exercise the
// RTU state machine's transmit/receive interleaving.
func (l *LoopbackPipe) Transmit(port int, data []byte) bool {
	l.mu.Lock()
	st, ok := l.state[port]
	l.mu.Unlock()
	if !ok {
		return false
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	go func() {
		if l.peer != nil {
			l.peer.mu.Lock()
			peerState, peerOK := l.peer.state[port]
			l.peer.mu.Unlock()
			if peerOK {
				peerState.onReceived(port, cp)
			}
		}
		st.onTxComplete(port)
	}()
	return true
}

// Close drops port's registered callbacks.
func (l *LoopbackPipe) Close(port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, port)
	return nil
}
