// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package datatable

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MmapStorage persists a Model via a memory-mapped file. Grounded on
// internal/local-slave/persistence/mmap.go, but wired to the mmap-go
// library's MapRegion/Flush/Unmap instead of the teacher's raw syscall.Mmap —
// the teacher's own go.mod lists edsrzf/mmap-go as a dependency but never
// imports it anywhere, relying on syscall directly instead; this type is
// where that previously-unused dependency earns its place.
type MmapStorage struct {
	path  string
	file  *os.File
	data  mmap.MMap
	model *Model
	log   *slog.Logger
}

// NewMmapStorage constructs an MmapStorage rooted at path.
func NewMmapStorage(path string, log *slog.Logger) *MmapStorage {
	if log == nil {
		log = slog.Default()
	}
	return &MmapStorage{path: path, log: log}
}

// Load opens (creating if necessary) and maps path, decoding its contents
// into a Model.
func (s *MmapStorage) Load() (*Model, error) {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datatable: open mmap storage: %w", err)
	}
	s.file = f

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() != int64(totalSize) {
		if err := f.Truncate(int64(totalSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("datatable: resize mmap storage: %w", err)
		}
	}

	data, err := mmap.MapRegion(f, totalSize, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("datatable: mmap: %w", err)
	}
	s.data = data
	s.model = decodeModel(data, s.OnWrite)
	return s.model, nil
}

// Save re-encodes the model into the mapped region and flushes it.
func (s *MmapStorage) Save(m *Model) error {
	encodeModel(m, s.data)
	return s.sync()
}

// OnWrite re-encodes the live model into the mapped region and requests an
// msync on every write, via mmap.MMap.Flush.
func (s *MmapStorage) OnWrite(table TableType, address, quantity uint16) {
	if s.model != nil {
		encodeModel(s.model, s.data)
	}
	if err := s.sync(); err != nil {
		s.log.Error("datatable: mmap storage sync failed", "table", table, "address", address, "quantity", quantity, "error", err)
	}
}

func (s *MmapStorage) sync() error {
	if s.data == nil {
		return nil
	}
	return s.data.Flush()
}

// Close unmaps the region and closes the underlying file.
func (s *MmapStorage) Close() error {
	var err error
	if s.data != nil {
		err = s.data.Unmap()
		s.data = nil
	}
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
		s.file = nil
	}
	return err
}
