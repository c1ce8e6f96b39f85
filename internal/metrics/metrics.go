// Package metrics exposes dispatch and encoder counters for Prometheus.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "label_"

type collectors struct {
	dispatchOutcomes *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
	encodeLatency    *prometheus.HistogramVec
	elementFaults    *prometheus.CounterVec
	bytesSent        prometheus.Counter
}

var (
	registerOnce sync.Once
	current      atomic.Pointer[collectors]
)

// Init registers the collectors with reg. It is safe to call more than once,
// and concurrently with recording; only the first registry is used.
// Recording before Init is a no-op.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		c := &collectors{
			dispatchOutcomes: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: metricPrefix + "dispatch_outcomes_total",
					Help: "Dispatch calls by terminal outcome",
				},
				[]string{"outcome"},
			),
			dispatchLatency: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    metricPrefix + "dispatch_seconds",
					Help:    "Dispatch call latency in seconds",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
				},
				[]string{"outcome"},
			),
			encodeLatency: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    metricPrefix + "encode_seconds",
					Help:    "Template encode latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"language"},
			),
			elementFaults: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: metricPrefix + "element_faults_total",
					Help: "Elements skipped or degraded during encoding by kind",
				},
				[]string{"kind"},
			),
			bytesSent: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: metricPrefix + "bytes_sent_total",
					Help: "Bytes handed to the transport",
				},
			),
		}

		reg.MustRegister(c.dispatchOutcomes, c.dispatchLatency, c.encodeLatency, c.elementFaults, c.bytesSent)
		current.Store(c)
	})
}

// ObserveDispatch records one terminal dispatch outcome
func ObserveDispatch(outcome string, d time.Duration) {
	c := current.Load()
	if c == nil {
		return
	}
	c.dispatchOutcomes.WithLabelValues(outcome).Inc()
	c.dispatchLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveEncode records encode latency for a language
func ObserveEncode(language string, d time.Duration) {
	if c := current.Load(); c != nil {
		c.encodeLatency.WithLabelValues(language).Observe(d.Seconds())
	}
}

// ElementFault counts an element that was skipped or degraded
func ElementFault(kind string) {
	if c := current.Load(); c != nil {
		c.elementFaults.WithLabelValues(kind).Inc()
	}
}

// BytesSent counts payload bytes handed to the transport
func BytesSent(n int) {
	if c := current.Load(); c != nil {
		c.bytesSent.Add(float64(n))
	}
}
