// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
serial:
  device: /dev/ttyUSB0
  baud_rate: 19200
  parity: e
unit:
  address: 17
backend:
  mode: cooperative
log:
  level: debug
`

func TestLoadAppliesDefaultsAndFixups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Serial.Parity != "E" {
		t.Errorf("expected parity fixed up to E, got %q", cfg.Serial.Parity)
	}
	if cfg.Serial.Timeout != 500*time.Millisecond {
		t.Errorf("expected default timeout, got %v", cfg.Serial.Timeout)
	}
	if cfg.Unit.Address != 17 {
		t.Errorf("expected unit address 17, got %d", cfg.Unit.Address)
	}
	if cfg.Unit.RequestTimeout != 500*time.Millisecond {
		t.Errorf("expected default request timeout, got %v", cfg.Unit.RequestTimeout)
	}
	if cfg.Backend.Mode != "cooperative" {
		t.Errorf("expected cooperative mode, got %q", cfg.Backend.Mode)
	}
}

func TestBackendConfigNewBackend(t *testing.T) {
	b := BackendConfig{Mode: "cooperative", QueueCapacity: 4}
	backend, err := b.NewBackend()
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if !backend.IsCooperative() {
		t.Errorf("expected cooperative backend")
	}
}

func TestBackendConfigRejectsUnknownMode(t *testing.T) {
	b := BackendConfig{Mode: "bogus"}
	if _, err := b.NewBackend(); err == nil {
		t.Fatal("expected error for unknown backend mode")
	}
}
