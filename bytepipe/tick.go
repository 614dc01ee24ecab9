// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bytepipe

import "time"

const tickResolution = 50 * time.Microsecond

// TickSource is the monotonic 50 µs-resolution counter the RTU layer needs
// for inter-character/inter-frame timing (§4.2). It wraps time.Now() into a
// 16-bit counter that wraps roughly every 3.3 seconds, exactly as the spec
// describes; callers must use modular subtraction (see rtu.TicksSince and
// rtu.Elapsed),
// never a plain >= comparison.
type TickSource struct {
	epoch time.Time
}

// NewTickSource starts a tick source whose epoch is the current time.
func NewTickSource() *TickSource {
	return &TickSource{epoch: time.Now()}
}

// Count returns the current tick count, truncated to 16 bits.
func (t *TickSource) Count() uint16 {
	return uint16(time.Since(t.epoch) / tickResolution)
}
