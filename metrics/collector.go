// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package metrics exposes a server.Channel's diagnostics counters (§4.5)
// as Prometheus counters, grounded on runZeroInc-sockstats'
// TCPInfoCollector (pkg/exporter/exporter.go): one Collector implementing
// prometheus.Collector's Describe/Collect pair, reading a live source on
// every scrape rather than caching values between scrapes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ffutop/modbus-rtu-stack/server"
)

// CounterSource is anything that can report a Counters snapshot — a
// *server.Channel satisfies this directly.
type CounterSource interface {
	Counters() server.Counters
}

// Collector adapts one CounterSource's diagnostics counters to
// Prometheus, labeled by the unit address the channel serves.
type Collector struct {
	source      CounterSource
	unitAddress string

	busMessage       *prometheus.Desc
	busCommError     *prometheus.Desc
	busExceptionError *prometheus.Desc
	serverMessage    *prometheus.Desc
	serverNoResponse *prometheus.Desc
}

// NewCollector builds a Collector for source, labeling every exposed
// metric with unitAddress (e.g. "17").
func NewCollector(source CounterSource, unitAddress string) *Collector {
	labels := prometheus.Labels{"unit": unitAddress}
	mk := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("modbus_rtu_"+name, help, nil, labels)
	}
	return &Collector{
		source:      source,
		unitAddress: unitAddress,

		busMessage:        mk("bus_message_count", "Total messages observed on the bus."),
		busCommError:      mk("bus_comm_error_count", "Total bus-level communication errors (CRC/framing)."),
		busExceptionError: mk("bus_exception_error_count", "Total exception responses sent."),
		serverMessage:     mk("server_message_count", "Total messages addressed to this unit."),
		serverNoResponse:  mk("server_no_response_count", "Total requests this unit failed to answer."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.busMessage
	descs <- c.busCommError
	descs <- c.busExceptionError
	descs <- c.serverMessage
	descs <- c.serverNoResponse
}

// Collect implements prometheus.Collector, reading a fresh snapshot from
// the source on every scrape.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	counters := c.source.Counters()

	metrics <- prometheus.MustNewConstMetric(c.busMessage, prometheus.CounterValue, float64(counters.BusMessageCount))
	metrics <- prometheus.MustNewConstMetric(c.busCommError, prometheus.CounterValue, float64(counters.BusCommErrorCount))
	metrics <- prometheus.MustNewConstMetric(c.busExceptionError, prometheus.CounterValue, float64(counters.BusExceptionErrorCount))
	metrics <- prometheus.MustNewConstMetric(c.serverMessage, prometheus.CounterValue, float64(counters.ServerMessageCount))
	metrics <- prometheus.MustNewConstMetric(c.serverNoResponse, prometheus.CounterValue, float64(counters.ServerNoResponseCount))
}
