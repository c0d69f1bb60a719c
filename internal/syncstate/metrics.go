package syncstate

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "sync"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Highest block height reported by the network.
	TopBlock metrics.Gauge
	// Whether or not the node is catching up. 1 if yes, 0 if no.
	CatchupMode metrics.Gauge
	// Number of logical networks the node takes part in.
	Networks metrics.Gauge
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		TopBlock: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "top_block",
			Help:      "Highest block height reported by the network.",
		}, labels).With(labelsAndValues...),
		CatchupMode: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "catchup_mode",
			Help:      "Whether or not the node is catching up. 1 if yes, 0 if no.",
		}, labels).With(labelsAndValues...),
		Networks: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "networks",
			Help:      "Number of logical networks the node takes part in.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		TopBlock:    discard.NewGauge(),
		CatchupMode: discard.NewGauge(),
		Networks:    discard.NewGauge(),
	}
}
