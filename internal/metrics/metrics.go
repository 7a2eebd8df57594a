// Package metrics exports Prometheus instruments for facility API traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Client counts and times every request the transport completes.
// It satisfies transport.Observer.
type Client struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewClient registers the client instruments on reg. A nil reg uses the
// default registerer.
func NewClient(reg prometheus.Registerer) (*Client, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Client{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Facility API requests by operation, method and status code.",
		}, []string{"op", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facility",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Facility API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "method"}),
	}
	for _, col := range []prometheus.Collector{c.requests, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records one exchange. status 0 is reported as code "error".
func (c *Client) Observe(op, method string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.requests.WithLabelValues(op, method, code).Inc()
	c.duration.WithLabelValues(op, method).Observe(elapsed.Seconds())
}

// Batch tracks recognition jobs handled by the queue worker.
type Batch struct {
	processed *prometheus.CounterVec
	inflight  prometheus.Gauge
}

func NewBatch(reg prometheus.Registerer) (*Batch, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	b := &Batch{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility",
			Subsystem: "batch",
			Name:      "jobs_total",
			Help:      "Recognition jobs by outcome (matched, unmatched, failed).",
		}, []string{"outcome"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facility",
			Subsystem: "batch",
			Name:      "jobs_inflight",
			Help:      "Recognition jobs currently being processed.",
		}),
	}
	for _, col := range []prometheus.Collector{b.processed, b.inflight} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Batch) Started() { b.inflight.Inc() }

// Finished records a completed job with its outcome label.
func (b *Batch) Finished(outcome string) {
	b.inflight.Dec()
	b.processed.WithLabelValues(outcome).Inc()
}
