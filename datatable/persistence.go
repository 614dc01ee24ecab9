// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package datatable

// Storage persists a Model's contents, grounded on the teacher's
// internal/local-slave/persistence.Storage interface
// (internal/local-slave/persistence/storage.go): Load builds a Model
// (from disk if present, otherwise a fresh zeroed one), Save flushes it
// back out, and OnWrite is the real-time hook a backing store uses to
// sync on every mutation rather than only at Save.
type Storage interface {
	Load() (*Model, error)
	Save(m *Model) error
	OnWrite(table TableType, address, quantity uint16)
}

// layout mirrors the teacher's persistence/layout.go and mmap.go (which,
// in the retrieved pack, duplicate these same offset constants across two
// files — a pre-existing quirk left alone in the teacher's own tree, and
// not reproduced here since this package declares them exactly once).
const (
	sizeCoils    = MaxAddress + 1
	sizeDiscrete = MaxAddress + 1
	sizeHolding  = (MaxAddress + 1) * 2
	sizeInput    = (MaxAddress + 1) * 2
	totalSize    = sizeCoils + sizeDiscrete + sizeHolding + sizeInput

	offsetCoils    = 0
	offsetDiscrete = offsetCoils + sizeCoils
	offsetHolding  = offsetDiscrete + sizeDiscrete
	offsetInput    = offsetHolding + sizeHolding
)

// encodeModel serializes m into the flat totalSize-byte layout used by
// FileStorage and MmapStorage: one byte per coil/discrete input, one
// big-endian uint16 per holding/input register. Unlike the teacher's
// unsafe host-endian aliasing of registers onto the mmap'd bytes, this
// writes big-endian explicitly — the same wire endianness Modbus itself
// uses — so the file format is portable across architectures, not just
// fast on one.
func encodeModel(m *Model, buf []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, v := range m.Coils {
		if v {
			buf[offsetCoils+i] = 1
		} else {
			buf[offsetCoils+i] = 0
		}
	}
	for i, v := range m.DiscreteInputs {
		if v {
			buf[offsetDiscrete+i] = 1
		} else {
			buf[offsetDiscrete+i] = 0
		}
	}
	for i, v := range m.HoldingRegisters {
		buf[offsetHolding+2*i] = byte(v >> 8)
		buf[offsetHolding+2*i+1] = byte(v)
	}
	for i, v := range m.InputRegisters {
		buf[offsetInput+2*i] = byte(v >> 8)
		buf[offsetInput+2*i+1] = byte(v)
	}
}

func decodeModel(buf []byte, onWrite func(TableType, uint16, uint16)) *Model {
	m := NewModel(onWrite)
	for i := 0; i <= MaxAddress; i++ {
		m.Coils[i] = buf[offsetCoils+i] != 0
		m.DiscreteInputs[i] = buf[offsetDiscrete+i] != 0
		m.HoldingRegisters[i] = uint16(buf[offsetHolding+2*i])<<8 | uint16(buf[offsetHolding+2*i+1])
		m.InputRegisters[i] = uint16(buf[offsetInput+2*i])<<8 | uint16(buf[offsetInput+2*i+1])
	}
	return m
}

// MemoryStorage is a no-op Storage: Load always returns a fresh zeroed
// Model and Save/OnWrite do nothing, for deployments with no durability
// requirement (matches internal/local-slave/persistence/memory.go).
type MemoryStorage struct{}

// NewMemoryStorage constructs a no-op Storage.
func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

func (s *MemoryStorage) Load() (*Model, error) { return NewModel(nil), nil }
func (s *MemoryStorage) Save(*Model) error      { return nil }
func (s *MemoryStorage) OnWrite(TableType, uint16, uint16) {}
