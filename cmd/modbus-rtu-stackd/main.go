// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Command modbus-rtu-stackd runs one RTU stack as a server: it loads a
// config.Stack, opens the configured serial port, answers requests against
// an in-memory (optionally file-backed) data table, and exposes the
// diagnostics counters on a Prometheus /metrics endpoint. Adapted from the
// teacher's root main.go (config/logger setup, signal-driven shutdown),
// generalized from a multi-gateway TCP<->RTU bridge down to a single RTU
// server process — the bridging/TCP surface this module's spec excludes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ffutop/modbus-rtu-stack/bytepipe"
	"github.com/ffutop/modbus-rtu-stack/config"
	"github.com/ffutop/modbus-rtu-stack/datatable"
	"github.com/ffutop/modbus-rtu-stack/dispatcher"
	"github.com/ffutop/modbus-rtu-stack/metrics"
	"github.com/ffutop/modbus-rtu-stack/osal"
	"github.com/ffutop/modbus-rtu-stack/rtu"
	"github.com/ffutop/modbus-rtu-stack/server"
)

// eventQueueSize follows §6's default (num_event_ids x num_ports); this
// process opens exactly one port.
const eventQueueSize = 5

func main() {
	configFile := flag.String("config", "", "path to config file")
	storeFile := flag.String("store", "", "path to a file-backed data table (empty: in-memory only)")
	metricsAddr := flag.String("metrics-addr", ":9404", "address to serve /metrics on")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)
	slog.Info("starting modbus rtu stack", "unit", cfg.Unit.Address, "device", cfg.Serial.Device)

	store, model, err := openStore(*storeFile)
	if err != nil {
		slog.Error("failed to open data table store", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	ch := server.NewChannel(cfg.Unit.Address, nil, model.Callbacks(), slog.Default())

	// The event queue and single event_task pump (§2 C4, §4.4) sit between
	// the transport's frame reassembly and the channel's decode/dispatch:
	// the transport posts PDU_RECEIVED to the Dispatcher rather than
	// invoking the channel directly, so the channel is only ever driven
	// from the one cooperative loop Dispatcher.Run runs.
	backend := osal.NewPreemptive(eventQueueSize)
	disp := dispatcher.New(backend)

	pipe := bytepipe.NewSerialPipe(256)
	transport := rtu.NewTransport(pipe, 1, cfg.Serial.BaudRate, func(_ *rtu.Packet, _ error) {
		if err := disp.Post(osal.Event{ID: osal.EventPDUReceived, Context: ch}, false); err != nil {
			slog.Error("failed to post received frame to dispatcher", "error", err)
		}
	}, nil)
	if err := transport.Open(cfg.Serial.PortConfig()); err != nil {
		slog.Error("failed to open serial port", "device", cfg.Serial.Device, "error", err)
		os.Exit(1)
	}
	defer transport.Close()
	ch.AttachTransport(transport)

	prometheus.MustRegister(metrics.NewCollector(ch, fmt.Sprintf("%d", cfg.Unit.Address)))
	go serveMetrics(*metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispDone := make(chan struct{})
	go func() {
		disp.Run(ctx)
		close(dispDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	cancel()
	<-dispDone
}

// openStore builds the data table backing storage named by path: empty for
// in-memory only, otherwise a plain file (§ambient persistence — mmap is
// available as datatable.MmapStorage for deployments that want it, but a
// single flat file is the friendlier default for this entrypoint).
func openStore(path string) (*datatable.FileStorage, *datatable.Model, error) {
	if path == "" {
		return nil, datatable.NewModel(nil), nil
	}
	store := datatable.NewFileStorage(path, slog.Default())
	model, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, model, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
