package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "venuefeed_connection_state",
		Help: "Connection state per venue (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=failed).",
	}, []string{"exchange"})

	ConnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuefeed_connect_attempts_total",
		Help: "Total connection attempts per venue.",
	}, []string{"exchange"})

	ConnectionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuefeed_connection_failures_total",
		Help: "Total connection failures per venue.",
	}, []string{"exchange"})

	PriceUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuefeed_price_updates_total",
		Help: "Total price updates received per venue.",
	}, []string{"exchange"})

	BufferDropped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "venuefeed_buffer_dropped_total",
		Help: "Updates evicted from a full buffer per venue.",
	}, []string{"exchange"})

	WriterInserts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venuefeed_writer_inserts_total",
		Help: "Total rows inserted by the price writer.",
	})

	WriterFlushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "venuefeed_writer_flush_duration_seconds",
		Help:    "Price writer flush latency in seconds.",
		Buckets: prometheus.LinearBuckets(0.01, 0.01, 20),
	})
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(ConnectionState)
	prometheus.MustRegister(ConnectAttempts)
	prometheus.MustRegister(ConnectionFailures)
	prometheus.MustRegister(PriceUpdates)
	prometheus.MustRegister(BufferDropped)
	prometheus.MustRegister(WriterInserts)
	prometheus.MustRegister(WriterFlushDuration)
}

// Server exposes the metrics endpoint, plus /health when a health handler is
// given.
func Server(port int, path string, health http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	if health != nil {
		mux.Handle("/health", health)
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
