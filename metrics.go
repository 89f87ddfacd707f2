package wayland

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors of a Metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wayland").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics collects protocol traffic statistics. One Metrics may be shared by
// any number of connections; a nil *Metrics records nothing.
type Metrics struct {
	messages    *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	fds         *prometheus.CounterVec
	writes      prometheus.Counter
	dropped     prometheus.Counter
	fatalErrors *prometheus.CounterVec
	connections prometheus.Gauge
	objects     prometheus.Gauge
}

// NewMetrics registers the collectors with config.Registry.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "wayland"
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_total",
			Help:        "Total number of protocol messages by direction and interface",
			ConstLabels: config.ConstLabels,
		}, []string{"direction", "interface"}),

		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bytes_total",
			Help:        "Total number of bytes moved over protocol sockets",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),

		fds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fds_total",
			Help:        "Total number of file descriptors passed over protocol sockets",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),

		writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "socket_writes_total",
			Help:        "Total number of sendmsg calls made by flushes",
			ConstLabels: config.ConstLabels,
		}),

		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dropped_messages_total",
			Help:        "Total number of messages dropped because their target was destroyed",
			ConstLabels: config.ConstLabels,
		}),

		fatalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fatal_errors_total",
			Help:        "Total number of connections closed by an error, by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connections",
			Help:        "Number of open protocol connections",
			ConstLabels: config.ConstLabels,
		}),

		objects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "objects",
			Help:        "Number of live protocol objects across connections",
			ConstLabels: config.ConstLabels,
		}),
	}
}

const (
	directionIn  = "in"
	directionOut = "out"
)

func (m *Metrics) message(direction, iface string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(direction, iface).Inc()
}

func (m *Metrics) transfer(direction string, bytes, fds int) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues(direction).Add(float64(bytes))
	if fds > 0 {
		m.fds.WithLabelValues(direction).Add(float64(fds))
	}
}

func (m *Metrics) write() {
	if m == nil {
		return
	}
	m.writes.Inc()
}

func (m *Metrics) drop() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) fatal(err error) {
	if m == nil {
		return
	}
	m.fatalErrors.WithLabelValues(errorKind(err)).Inc()
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) connClosed(liveObjects int) {
	if m == nil {
		return
	}
	m.connections.Dec()
	m.objects.Sub(float64(liveObjects))
}

func (m *Metrics) objectCreated() {
	if m == nil {
		return
	}
	m.objects.Inc()
}

func (m *Metrics) objectDestroyed() {
	if m == nil {
		return
	}
	m.objects.Dec()
}
