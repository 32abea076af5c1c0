package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	registerOnce sync.Once

	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qlink",
			Subsystem: "scan",
			Name:      "total",
			Help:      "Scan attempts by outcome.",
		},
		[]string{"outcome"},
	)
	scansByType = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qlink",
			Subsystem: "scan",
			Name:      "by_type_total",
			Help:      "Scan attempts by UR type and outcome.",
		},
		[]string{"ur_type", "outcome"},
	)
	scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qlink",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Time spent decoding one frame in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"outcome"},
	)
	frameInterval = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qlink",
			Subsystem: "frame",
			Name:      "interval_seconds",
			Help:      "Interval between successive frames in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	backpressure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "qlink",
			Subsystem: "scan",
			Name:      "backpressure_level",
			Help:      "Consecutive failed frames in the watch loop.",
		},
	)
	payloadsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qlink",
			Subsystem: "payload",
			Name:      "decoded_total",
			Help:      "Completed payloads by message variant.",
		},
		[]string{"variant", "multipart"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(scansTotal, scansByType, scanDuration, frameInterval, backpressure, payloadsDecoded)
	})
}

// RecordScan records one frame. urType is empty when the frame did not
// carry a readable UR type.
func RecordScan(duration time.Duration, success bool, urType string) {
	RegisterMetrics()
	outcome := OutcomeFailure
	if success {
		outcome = OutcomeSuccess
	}
	scansTotal.WithLabelValues(outcome).Inc()
	scanDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if urType != "" {
		scansByType.WithLabelValues(urType, outcome).Inc()
	}
	window.record(duration, success, urType)
}

func RecordFrameInterval(interval time.Duration) {
	RegisterMetrics()
	frameInterval.Observe(interval.Seconds())
	window.recordFrameInterval(interval)
}

func RecordBackpressure(level uint64) {
	RegisterMetrics()
	backpressure.Set(float64(level))
	window.recordBackpressure(level)
}

func RecordPayload(variant string, multipart bool) {
	RegisterMetrics()
	payloadsDecoded.WithLabelValues(variant, strconv.FormatBool(multipart)).Inc()
}
