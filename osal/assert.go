// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package osal

import (
	"log/slog"
	"sync"
)

// Handler is invoked on a programmer error (§7): invalid argument,
// used-after-free, exhausted pool. The default handler only logs — it must
// not terminate the process, since "the system continues running" per §7.
type Handler func(msg string, args ...any)

var (
	handlerMu sync.RWMutex
	handler   Handler = func(msg string, args ...any) {
		slog.Error(msg, args...)
	}
)

// SetAssertHandler installs a user handler for programmer errors, replacing
// the default slog-based one.
func SetAssertHandler(h Handler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if h == nil {
		h = func(string, ...any) {}
	}
	handler = h
}

// Assert reports a programmer error. Callers are expected to also return a
// sentinel (nil / zero-value / error) to the operation's caller — Assert
// never panics or exits.
func Assert(msg string, args ...any) {
	handlerMu.RLock()
	h := handler
	handlerMu.RUnlock()
	h(msg, args...)
}
