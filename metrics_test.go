package wayland

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Zereker/wayland/wire"
)

// newTestMetrics returns metrics registered with a private registry.
func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(MetricsConfig{Registry: prometheus.NewRegistry()})
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	t.Fatal("metric is neither a counter nor a gauge")
	return 0
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.message(directionIn, "wl_display")
	m.transfer(directionOut, 10, 1)
	m.write()
	m.drop()
	m.fatal(ErrConnectionClosed)
	m.connOpened()
	m.connClosed(3)
	m.objectCreated()
	m.objectDestroyed()
}

func TestNewMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{
		Namespace:   "test",
		Subsystem:   "client",
		ConstLabels: prometheus.Labels{"role": "unit"},
		Registry:    reg,
	})
	m.message(directionOut, "wl_display")
	m.transfer(directionIn, 8, 0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		names[f.GetName()] = f
	}

	for _, name := range []string{
		"test_client_messages_total",
		"test_client_bytes_total",
		"test_client_connections",
		"test_client_objects",
	} {
		if _, ok := names[name]; !ok {
			t.Errorf("%s not registered", name)
		}
	}
	if _, ok := names["test_client_fds_total"]; ok {
		t.Error("fds counted for a transfer without descriptors")
	}

	f := names["test_client_messages_total"]
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatal("expected one messages series")
	}
	labels := make(map[string]string)
	for _, lp := range f.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["role"] != "unit" || labels["direction"] != "out" || labels["interface"] != "wl_display" {
		t.Errorf("labels = %v", labels)
	}
}

func TestMetrics_Connection(t *testing.T) {
	m := newTestMetrics(t)
	_, client := newTestPair(t, nil, MetricsOption(m))

	if got := metricValue(t, m.connections); got != 1 {
		t.Errorf("connections = %v, want 1", got)
	}
	if err := client.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip failed: %v", err)
	}

	if got := metricValue(t, m.messages.WithLabelValues(directionOut, "wl_display")); got != 1 {
		t.Errorf("sync requests = %v, want 1", got)
	}
	if got := metricValue(t, m.messages.WithLabelValues(directionIn, "wl_callback")); got != 1 {
		t.Errorf("done events = %v, want 1", got)
	}
	if got := metricValue(t, m.writes); got < 1 {
		t.Errorf("writes = %v", got)
	}
	if got := metricValue(t, m.bytes.WithLabelValues(directionOut)); got != 12 {
		t.Errorf("bytes out = %v, want 12", got)
	}
	// Only the display is left once the callback is gone.
	if got := metricValue(t, m.objects); got != 1 {
		t.Errorf("objects = %v, want 1", got)
	}

	client.Close()
	if got := metricValue(t, m.connections); got != 0 {
		t.Errorf("connections = %v after Close", got)
	}
	if got := metricValue(t, m.objects); got != 0 {
		t.Errorf("objects = %v after Close", got)
	}
}

func TestMetrics_FatalAndDrop(t *testing.T) {
	m := newTestMetrics(t)
	ts := &thingServer{}
	ts.onPoke = func(res *Object, n int32) error {
		switch n {
		case 1:
			child, err := res.SendNew(thingSpawned, nil, 0, wire.NewID(0))
			if err != nil {
				return err
			}
			ts.track(child)
		case 2:
			return ts.last().Send(thingPinged, wire.Uint(1))
		case 3:
			return errors.New("bad poke")
		}
		return nil
	}
	_, client, thing := newThingPair(t, ts, MetricsOption(m))

	var child *Object
	thing.SetHandler(HandlerFunc(func(_ *Object, msg Message) error {
		if msg.Opcode == thingSpawned {
			child = msg.Object(0)
		}
		return nil
	}))
	for n := int32(1); n <= 2; n++ {
		if err := thing.Send(thingPoke, wire.Int(n), wire.NullString()); err != nil {
			t.Fatalf("poke failed: %v", err)
		}
		if err := client.Roundtrip(); err != nil {
			t.Fatalf("Roundtrip failed: %v", err)
		}
		if n == 1 {
			if child == nil {
				t.Fatal("no child spawned")
			}
			child.Destroy()
		}
	}
	if got := metricValue(t, m.dropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}

	if err := thing.Send(thingPoke, wire.Int(3), wire.NullString()); err != nil {
		t.Fatalf("poke failed: %v", err)
	}
	if err := client.Roundtrip(); err == nil {
		t.Fatal("Roundtrip succeeded after a protocol error")
	}
	if got := metricValue(t, m.fatalErrors.WithLabelValues("protocol")); got != 1 {
		t.Errorf("protocol errors = %v, want 1", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{wire.ErrMalformed, "framing"},
		{&SignatureError{Interface: "i", Message: "m", Reason: "r"}, "signature"},
		{ErrInvalidOpcode, "signature"},
		{ErrInvalidObject, "invalidity"},
		{ErrIDInUse, "invalidity"},
		{&VersionError{Interface: "i", Requested: 3, Supported: 1}, "version"},
		{ErrUnknownGlobal, "version"},
		{&ProtocolError{Code: DisplayErrorNoMemory}, "protocol"},
		{errors.New("broken pipe"), "io"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
