// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a sink has written, labelled by output format.
type Metrics struct {
	Rows     *prometheus.CounterVec
	Chunks   *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the sink collectors and registers them with reg, if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveysim",
			Subsystem: "output",
			Name:      "rows_written_total",
			Help:      "Observation rows appended to the result store.",
		}, []string{"format"}),
		Chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveysim",
			Subsystem: "output",
			Name:      "chunks_written_total",
			Help:      "Chunks appended to the result store.",
		}, []string{"format"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveysim",
			Subsystem: "output",
			Name:      "write_failures_total",
			Help:      "Chunk writes that returned an error.",
		}, []string{"format"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surveysim",
			Subsystem: "output",
			Name:      "write_duration_seconds",
			Help:      "Time spent appending one chunk.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"format"}),
	}
	if reg != nil {
		reg.MustRegister(m.Rows, m.Chunks, m.Failures, m.Duration)
	}
	return m
}
