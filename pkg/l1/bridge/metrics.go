package bridge

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/framelink/pkg/l0/comm"
)

// NewRegistry creates a registry with the process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves the registry.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics are the bridge metrics.
type Metrics struct {
	Commands        *prometheus.CounterVec // labels: kind, result
	CommandLatency  prometheus.Histogram
	DroppedCommands prometheus.Counter
	DeviceOnline    prometheus.Gauge
	Heartbeats      *prometheus.CounterVec // labels: result
	Link            *prometheus.GaugeVec   // labels: counter
}

// NewMetrics registers the bridge metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framelink",
			Name:      "commands_total",
			Help:      "Commands forwarded to the device.",
		}, []string{"kind", "result"}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "framelink",
			Name:      "command_latency_seconds",
			Help:      "Time from sending a command to its response.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		DroppedCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "framelink",
			Name:      "dropped_commands_total",
			Help:      "Commands rejected because the bridge was busy.",
		}),
		DeviceOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "framelink",
			Name:      "device_online",
			Help:      "1 while the device answers heartbeats.",
		}),
		Heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framelink",
			Name:      "heartbeats_total",
			Help:      "Heartbeat pings by result.",
		}, []string{"result"}),
		Link: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "framelink",
			Name:      "link_counter",
			Help:      "Host side link counters.",
		}, []string{"counter"}),
	}
	reg.MustRegister(m.Commands, m.CommandLatency, m.DroppedCommands, m.DeviceOnline, m.Heartbeats, m.Link)
	return m
}

func (m *Metrics) observeCommand(kind, result string, latency time.Duration) {
	m.Commands.WithLabelValues(kind, result).Inc()
	if result == resultOK || result == resultRejected {
		m.CommandLatency.Observe(latency.Seconds())
	}
}

func (m *Metrics) observeLink(s comm.StatsSnapshot, unmatched uint64) {
	m.Link.WithLabelValues("rx_bytes").Set(float64(s.RxBytes))
	m.Link.WithLabelValues("frames_received").Set(float64(s.FramesReceived))
	m.Link.WithLabelValues("frames_sent").Set(float64(s.FramesSent))
	m.Link.WithLabelValues("bad_length_drops").Set(float64(s.BadLengthDrops))
	m.Link.WithLabelValues("checksum_drops").Set(float64(s.ChecksumDrops))
	m.Link.WithLabelValues("send_errors").Set(float64(s.SendErrors))
	m.Link.WithLabelValues("unmatched").Set(float64(unmatched))
}
