// Package metrics exposes counters and gauges on a side HTTP listener,
// off the main event loop: connections accepted, commands processed per
// type, current key count, and whether a hash-table resize is in
// progress. None of it touches the database directly — only
// atomically-maintained counters and gauge callbacks the rest of the
// code supplies — so it never reaches into the single-threaded command
// path.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument veloxd exports.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	CommandsProcessed   *prometheus.CounterVec
	KeyCount            prometheus.GaugeFunc
	RehashInProgress    prometheus.GaugeFunc

	registry *prometheus.Registry
	server   *http.Server
}

// New registers every instrument against a fresh registry. keyCount and
// rehashInProgress are pulled lazily on scrape, not pushed.
func New(keyCount func() float64, rehashInProgress func() float64) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veloxd_connections_accepted_total",
			Help: "Total TCP connections accepted.",
		}),
		CommandsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veloxd_commands_processed_total",
			Help: "Commands processed, labeled by command name.",
		}, []string{"command"}),
		KeyCount: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "veloxd_keys",
			Help: "Current number of keys in the global mapping.",
		}, keyCount),
		RehashInProgress: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "veloxd_hashtable_rehash_in_progress",
			Help: "1 if the key/value index has a resize in progress, 0 otherwise.",
		}, rehashInProgress),
		registry: reg,
	}

	reg.MustRegister(m.ConnectionsAccepted, m.CommandsProcessed, m.KeyCount, m.RehashInProgress)
	return m
}

// Serve starts the metrics HTTP listener on addr in its own goroutine.
// It never blocks the caller.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: addr, Handler: mux}
	go m.server.ListenAndServe()
}

// Shutdown stops the metrics listener.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
