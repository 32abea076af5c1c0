package metrics

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const MinInterval = 5 * time.Second

// Reporter logs a summary of every window and keeps the last one for the API.
type Reporter struct {
	interval time.Duration

	mu     sync.RWMutex
	latest *Snapshot
}

func NewReporter(interval time.Duration) *Reporter {
	if interval < MinInterval {
		interval = MinInterval
	}
	RegisterMetrics()
	return &Reporter{interval: interval}
}

func (r *Reporter) Interval() time.Duration {
	return r.interval
}

func (r *Reporter) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Infof("Metrics reporter started, interval %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping the metrics reporter...")
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Reporter) flush() Snapshot {
	s := window.snapshot(true)
	r.mu.Lock()
	r.latest = &s
	r.mu.Unlock()
	logSnapshot(s)
	return s
}

// Latest returns the last completed window, or the window in progress when
// none has completed yet.
func (r *Reporter) Latest() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest != nil {
		return *r.latest
	}
	return window.snapshot(false)
}

func logSnapshot(s Snapshot) {
	fields := log.Fields{
		"module":            "metrics",
		"interval_secs":     s.WindowSecs,
		"total_scans":       s.TotalScans,
		"success_count":     s.Successes,
		"failure_count":     s.Failures,
		"avg_latency_ms":    s.AvgLatencyMs,
		"success_rate":      s.SuccessRate,
		"backpressure":      s.Backpressure.Current,
		"backpressure_peak": s.Backpressure.Peak,
	}
	if s.FrameIntervals != nil {
		fields["frame_interval_avg_ms"] = s.FrameIntervals.AvgMs
		fields["frame_interval_max_ms"] = s.FrameIntervals.MaxMs
		fields["frame_interval_last_ms"] = s.FrameIntervals.LastMs
	}
	log.WithFields(fields).Info("Scan metrics window")

	if len(s.PerType) > 0 {
		log.WithFields(log.Fields{"module": "metrics", "breakdown": s.Breakdown()}).Info("Per-type metrics")
	}
}
