package engine

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/log"
)

// Metrics exports execution progress to prometheus. It is a common.Observer
// shared by every execution.
type Metrics struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	events     *prometheus.CounterVec
	active     prometheus.Gauge
	sessions   prometheus.Gauge
	slices     prometheus.Counter
	fills      prometheus.Counter
	sliceSize  prometheus.Histogram
	slippage   prometheus.Histogram

	mu      sync.Mutex
	started map[string]struct{}
}

// NewMetrics registers the execution collectors on a fresh registry
func NewMetrics(namespace string) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Finished executions by outcome",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Status events by status",
		}, []string{"status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_active",
			Help:      "Executions currently running",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_sessions",
			Help:      "Open websocket sessions",
		}),
		slices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slices_placed_total",
			Help:      "Slices placed",
		}),
		fills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_fills_total",
			Help:      "Simulated partial fills",
		}),
		sliceSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slice_size",
			Help:      "Base size of each slice order",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 10, 8),
		}),
		slippage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slippage_percent",
			Help:      "Simulated slippage of each partial fill in percent",
			Buckets:   prometheus.LinearBuckets(-0.1, 0.02, 11),
		}),
		started: make(map[string]struct{}),
	}
	for _, c := range []prometheus.Collector{
		m.executions, m.events, m.active, m.sessions, m.slices, m.fills, m.sliceSize, m.slippage,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	log.Debugln(log.Global, "Prometheus metrics initialised")
	return m, nil
}

// Observe implements common.Observer
func (m *Metrics) Observe(executionID string, _ int64, e *common.Event) {
	if m == nil || e == nil {
		return
	}
	m.events.WithLabelValues(string(e.Status)).Inc()
	switch e.Status {
	case common.StatusStart:
		m.mu.Lock()
		m.started[executionID] = struct{}{}
		m.mu.Unlock()
		m.active.Inc()
	case common.StatusSliceInfo:
		m.slices.Inc()
		m.sliceSize.Observe(e.Size)
	case common.StatusPartialFill:
		m.fills.Inc()
		m.slippage.Observe(e.SlippagePercent)
	}
	if !e.Status.IsTerminal() {
		return
	}
	m.executions.WithLabelValues(string(e.Status)).Inc()
	m.mu.Lock()
	_, ok := m.started[executionID]
	delete(m.started, executionID)
	m.mu.Unlock()
	if ok {
		m.active.Dec()
	}
}

func (m *Metrics) sessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
