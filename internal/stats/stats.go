package stats

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Version = "0.1.0"
var Commit = "HEAD"
var BuildDate = "now"

const namespace = "typedkv"

// Snapshot is a point-in-time copy of the server counters
type Snapshot struct {
	TotalConnectionsReceived int64
	ActiveConnections        int64
	TotalCommandsProcessed   int64
	KeyspaceHits             int64
	KeyspaceMisses           int64
	Uptime                   time.Duration
}

// Manager records server activity into a private Prometheus registry.
// Plain counters are mirrored in atomics so Snapshot stays cheap.
type Manager struct {
	registry *prometheus.Registry

	commands    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	connections prometheus.Counter
	active      prometheus.Gauge
	hits        prometheus.Counter
	misses      prometheus.Counter

	totalConnections int64
	activeConns      int64
	totalCommands    int64
	keyspaceHits     int64
	keyspaceMisses   int64

	startTime time.Time
}

// NewManager creates a manager with its collectors registered
func NewManager() *Manager {
	m := &Manager{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_processed_total",
			Help:      "Commands processed, by command name.",
		}, []string{"command"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Commands answered with an error reply, by command name.",
		}, []string{"command"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time, by command name.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"command"}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_received_total",
			Help:      "Client connections accepted.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Client connections currently open.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyspace_hits_total",
			Help:      "Key lookups that found a value.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyspace_misses_total",
			Help:      "Key lookups that found nothing.",
		}),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		m.commands,
		m.errors,
		m.latency,
		m.connections,
		m.active,
		m.hits,
		m.misses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackKeys exposes the live key count, read from fn at scrape time
func (m *Manager) TrackKeys(fn func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "keys",
		Help:      "Keys currently stored.",
	}, func() float64 { return float64(fn()) }))
}

// Connection tracking

func (m *Manager) ConnectionOpened() {
	atomic.AddInt64(&m.totalConnections, 1)
	atomic.AddInt64(&m.activeConns, 1)
	m.connections.Inc()
	m.active.Inc()
}

func (m *Manager) ConnectionClosed() {
	atomic.AddInt64(&m.activeConns, -1)
	m.active.Dec()
}

// RecordCommand counts one executed command. failed marks an error reply.
func (m *Manager) RecordCommand(name string, took time.Duration, failed bool) {
	atomic.AddInt64(&m.totalCommands, 1)
	m.commands.WithLabelValues(name).Inc()
	m.latency.WithLabelValues(name).Observe(took.Seconds())
	if failed {
		m.errors.WithLabelValues(name).Inc()
	}
}

// Keyspace tracking

func (m *Manager) KeyspaceHit() {
	atomic.AddInt64(&m.keyspaceHits, 1)
	m.hits.Inc()
}

func (m *Manager) KeyspaceMiss() {
	atomic.AddInt64(&m.keyspaceMisses, 1)
	m.misses.Inc()
}

// Snapshot returns the current counter values
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		TotalConnectionsReceived: atomic.LoadInt64(&m.totalConnections),
		ActiveConnections:        atomic.LoadInt64(&m.activeConns),
		TotalCommandsProcessed:   atomic.LoadInt64(&m.totalCommands),
		KeyspaceHits:             atomic.LoadInt64(&m.keyspaceHits),
		KeyspaceMisses:           atomic.LoadInt64(&m.keyspaceMisses),
		Uptime:                   time.Since(m.startTime),
	}
}

// Registry exposes the underlying registry for gathering
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
