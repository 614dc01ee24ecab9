// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package config loads the file-backed configuration for one RTU stack
// (§6), adapted from the teacher's internal/config.Config — generalized
// from a gateway's list of upstream/downstream transports down to the
// single serial port, unit address and OSAL backend mode this module's
// scope calls for. CLI flag parsing (the teacher's root config.go/main.go,
// built on spf13/pflag) is intentionally not carried forward: a
// command-line wrapper is out of scope here, but file-based configuration
// is still an ambient concern every deployment needs, so viper stays.
// Environment variables are not read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Stack is the root configuration for one RTU stack instance: one serial
// port, the unit address(es) it answers to or talks to, the concurrency
// backend it should run under, and logging.
type Stack struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Unit    UnitConfig    `mapstructure:"unit"`
	Backend BackendConfig `mapstructure:"backend"`
	Log     LogConfig     `mapstructure:"log"`
}

// UnitConfig identifies the node address(es) this stack operates as
// (server role) or targets (client role), and the per-unicast-request
// response timeout (§4.6).
type UnitConfig struct {
	Address        byte          `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TurnaroundTime time.Duration `mapstructure:"turnaround_time"`
}

// BackendConfig selects the OSAL concurrency backend (§5).
type BackendConfig struct {
	// Mode is "cooperative" or "preemptive".
	Mode          string `mapstructure:"mode"`
	QueueCapacity int    `mapstructure:"queue_capacity"`
}

// LogConfig configures the slog handler (§ambient logging).
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`
}

// SerialConfig configures the physical/RS485 link, adapted verbatim from
// the teacher's internal/config.SerialConfig field set (internal/config/config.go).
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`

	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// Load reads configuration from configFile, or the first config.yaml found
// on the standard search path ("/etc/modbus-rtu-stack/config.yaml",
// "$HOME/.modbus-rtu-stack/config.yaml", "./config.yaml", searched in that
// order) if configFile is empty.
func Load(configFile string) (*Stack, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-rtu-stack/")
		v.AddConfigPath("$HOME/.modbus-rtu-stack")
		v.AddConfigPath(".")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("backend.mode", "preemptive")
	v.SetDefault("backend.queue_capacity", 32)
	v.SetDefault("unit.request_timeout", 500*time.Millisecond)
	v.SetDefault("unit.turnaround_time", 100*time.Millisecond)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read config file: %w", err)
	}

	var cfg Stack
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal config: %w", err)
	}

	fixupSerial(&cfg.Serial)
	return &cfg, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Parity == "" {
		s.Parity = "N"
	}
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
}
