package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "battery_tester"

var (
	SamplesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logger",
		Name:      "samples_accepted_total",
		Help:      "Samples appended to the log file.",
	})
	SamplesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logger",
		Name:      "samples_rejected_total",
		Help:      "Lines from the tester that were not logged, by reason.",
	}, []string{"reason"})
	LinesDrained = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logger",
		Name:      "lines_drained_total",
		Help:      "Stale lines discarded from the serial port at startup.",
	})
	InfluxErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logger",
		Name:      "influx_write_errors_total",
		Help:      "Failed writes to InfluxDB.",
	})

	Ticks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plotter",
		Name:      "ticks_total",
		Help:      "Plotter ticks by result.",
	}, []string{"result"})
	RenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "plotter",
		Name:      "render_seconds",
		Help:      "Time to re-read the log file and redraw the chart.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
	PlottedSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "plotter",
		Name:      "samples",
		Help:      "Samples in the log file drawn on the last tick.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on address. It only returns on error.
func Serve(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(address, mux)
}
