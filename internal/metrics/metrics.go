package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the engine's transport counters on a private registry. There
// is no server endpoint; the CLI gathers the registry for its verbose summary
// and tests assert on counter values directly.
type Metrics struct {
	registry *prometheus.Registry

	reconnects      *prometheus.CounterVec
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// New creates a metrics set backed by a fresh registry. One set per executor
// invocation keeps runs independent.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodescout_connection_reconnects_total",
				Help: "Reconnect attempts made by remote transports",
			},
			[]string{"transport"},
		),
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodescout_commands_total",
				Help: "Commands executed per transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodescout_command_duration_seconds",
				Help:    "Wall time of executed commands",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 120},
			},
			[]string{"transport"},
		),
	}
}

// ObserveCommand records one executed command.
func (m *Metrics) ObserveCommand(transport, outcome string, duration time.Duration) {
	m.commands.WithLabelValues(transport, outcome).Inc()
	m.commandDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// ObserveReconnect records one reconnect attempt.
func (m *Metrics) ObserveReconnect(transport string) {
	m.reconnects.WithLabelValues(transport).Inc()
}

// ReconnectCount returns the reconnect counter for a transport. Scenario
// assertions and the verbose summary read it back.
func (m *Metrics) ReconnectCount(transport string) float64 {
	return counterValue(m.reconnects.WithLabelValues(transport))
}

// CommandCount returns the command counter for a transport and outcome.
func (m *Metrics) CommandCount(transport, outcome string) float64 {
	return counterValue(m.commands.WithLabelValues(transport, outcome))
}

func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Snapshot flattens the registry into "name{label=value,...}" -> value pairs,
// sorted by key. Counters report their value, histograms their sample count.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName() + labelSuffix(metric)
			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				out[key] = float64(metric.GetHistogram().GetSampleCount())
			case metric.GetGauge() != nil:
				out[key] = metric.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}

func labelSuffix(metric *dto.Metric) string {
	labels := metric.GetLabel()
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for _, label := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%s", label.GetName(), label.GetValue()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}
