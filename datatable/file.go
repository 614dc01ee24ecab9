// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package datatable

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// FileStorage persists a Model to a plain file via WriteAt+Sync, grounded
// on internal/local-slave/persistence/file.go.
type FileStorage struct {
	path  string
	file  *os.File
	buf   []byte
	model *Model
	log   *slog.Logger
}

// NewFileStorage constructs a FileStorage rooted at path.
func NewFileStorage(path string, log *slog.Logger) *FileStorage {
	if log == nil {
		log = slog.Default()
	}
	return &FileStorage{path: path, log: log}
}

// Load opens (creating if necessary) and reads path, decoding its
// contents into a Model. A freshly created file decodes as all-zero.
func (s *FileStorage) Load() (*Model, error) {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datatable: open file storage: %w", err)
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
			return nil, fmt.Errorf("datatable: resize file storage: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("datatable: read file storage: %w", err)
	}
	s.buf = data
	s.model = decodeModel(data, s.OnWrite)
	return s.model, nil
}

// Save re-encodes m into the in-memory buffer and flushes it to disk.
func (s *FileStorage) Save(m *Model) error {
	encodeModel(m, s.buf)
	return s.sync()
}

// OnWrite re-encodes the live model and re-syncs the whole buffer on
// every write, matching the teacher's "ensure data can be recovered"
// real-time persistence stance.
func (s *FileStorage) OnWrite(table TableType, address, quantity uint16) {
	if s.model != nil {
		encodeModel(s.model, s.buf)
	}
	if err := s.sync(); err != nil {
		s.log.Error("datatable: file storage sync failed", "table", table, "address", address, "quantity", quantity, "error", err)
	}
}

func (s *FileStorage) sync() error {
	if s.buf == nil || s.file == nil {
		return nil
	}
	if _, err := s.file.WriteAt(s.buf, 0); err != nil {
		return fmt.Errorf("datatable: write file storage: %w", err)
	}
	return s.file.Sync()
}

// Close releases the underlying file.
func (s *FileStorage) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
