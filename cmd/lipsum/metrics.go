package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the collectors of one server. Each server gets its own
// registry so that several can coexist in tests.
type metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	wordsGenerated  *prometheus.CounterVec
	chainPrefixes   *prometheus.GaugeVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lipsum_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lipsum_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		wordsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lipsum_words_generated_total",
				Help: "Total number of words generated, by corpus.",
			},
			[]string{"corpus"},
		),
		chainPrefixes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lipsum_chain_prefixes",
				Help: "Number of distinct prefixes in the loaded chain, by corpus.",
			},
			[]string{"corpus"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.wordsGenerated,
		m.chainPrefixes,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
