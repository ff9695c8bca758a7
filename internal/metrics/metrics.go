// Package metrics counts dispatch outcomes of sinks with Prometheus
// counters. A *Metrics is a sink.Observer; register it with
// sink.WithObserver.
package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"loghelper/internal/domain"
)

const namespace = "loghelper"

// Metrics holds the counters of every sink in a registry.
type Metrics struct {
	// RecordsTotal counts records accepted by the originating sink.
	RecordsTotal *prometheus.CounterVec
	// RecordsDroppedTotal counts records rejected by the originating sink.
	RecordsDroppedTotal *prometheus.CounterVec
	// DeliveriesTotal counts records handled by a destination.
	DeliveriesTotal *prometheus.CounterVec
	// DeliveryErrorsTotal counts destination failures.
	DeliveryErrorsTotal *prometheus.CounterVec

	mu    sync.Mutex
	stats map[string]*SinkStats
}

// SinkStats summarises the counters of one sink.
type SinkStats struct {
	Sink           string
	Accepted       int
	Dropped        int
	Delivered      int
	DeliveryErrors int
}

// New creates and registers all metrics with the default Prometheus registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Total number of records accepted by a sink",
			},
			[]string{"sink", "level"},
		),
		RecordsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_dropped_total",
				Help:      "Total number of records rejected by a sink threshold",
			},
			[]string{"sink"},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Total number of records written by a destination",
			},
			[]string{"sink", "kind"},
		),
		DeliveryErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_errors_total",
				Help:      "Total number of records a destination failed to write",
			},
			[]string{"sink", "kind"},
		),
		stats: make(map[string]*SinkStats),
	}
}

// NewForTest creates metrics with an isolated registry for testing.
func NewForTest() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

func (m *Metrics) RecordAccepted(rec domain.Record) {
	m.RecordsTotal.WithLabelValues(rec.Name, rec.Level.String()).Inc()
	m.update(rec.Name, func(s *SinkStats) { s.Accepted++ })
}

func (m *Metrics) RecordDropped(rec domain.Record) {
	m.RecordsDroppedTotal.WithLabelValues(rec.Name).Inc()
	m.update(rec.Name, func(s *SinkStats) { s.Dropped++ })
}

func (m *Metrics) Delivered(sinkName string, kind domain.DestinationKind) {
	m.DeliveriesTotal.WithLabelValues(sinkName, string(kind)).Inc()
	m.update(sinkName, func(s *SinkStats) { s.Delivered++ })
}

func (m *Metrics) DeliveryFailed(sinkName string, kind domain.DestinationKind) {
	m.DeliveryErrorsTotal.WithLabelValues(sinkName, string(kind)).Inc()
	m.update(sinkName, func(s *SinkStats) { s.DeliveryErrors++ })
}

// Snapshot returns the per-sink totals sorted by sink name.
func (m *Metrics) Snapshot() []SinkStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SinkStats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sink < out[j].Sink })
	return out
}

func (m *Metrics) update(sinkName string, fn func(*SinkStats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[sinkName]
	if !ok {
		s = &SinkStats{Sink: sinkName}
		m.stats[sinkName] = s
	}
	fn(s)
}
