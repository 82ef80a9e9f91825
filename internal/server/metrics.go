package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors exported on /metrics.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	turns    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npcgraph_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "code"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "npcgraph_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npcgraph_turns_total",
				Help: "Total number of NPC turns by outcome",
			},
			[]string{"npc_id", "outcome"},
		),
	}
	reg.MustRegister(m.requests, m.latency, m.turns)
	return m
}

func (m *Metrics) observeRequest(route, method string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) observeTurn(npcID string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.turns.WithLabelValues(npcID, outcome).Inc()
}
