package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type typeCounters struct {
	successes       uint64
	failures        uint64
	successDuration time.Duration
}

// aggregator accumulates scan activity for one reporting window. Unlike the
// prometheus collectors it is reset every time a snapshot is taken.
type aggregator struct {
	mu sync.Mutex

	totalScans      uint64
	successes       uint64
	failures        uint64
	successDuration time.Duration
	perType         map[string]*typeCounters
	lastReset       time.Time

	frameTotal   time.Duration
	frameSamples uint64
	frameMax     time.Duration
	frameLast    time.Duration

	backpressureLevel uint64
	backpressurePeak  uint64
}

var window = newAggregator()

func newAggregator() *aggregator {
	return &aggregator{
		perType:   make(map[string]*typeCounters),
		lastReset: time.Now(),
	}
}

func (a *aggregator) record(duration time.Duration, success bool, urType string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalScans++
	if success {
		a.successes++
		a.successDuration += duration
	} else {
		a.failures++
	}

	if urType == "" {
		return
	}
	c, ok := a.perType[urType]
	if !ok {
		c = &typeCounters{}
		a.perType[urType] = c
	}
	if success {
		c.successes++
		c.successDuration += duration
	} else {
		c.failures++
	}
}

func (a *aggregator) recordFrameInterval(interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frameTotal += interval
	a.frameSamples++
	if interval > a.frameMax {
		a.frameMax = interval
	}
	a.frameLast = interval
}

func (a *aggregator) recordBackpressure(level uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.backpressureLevel = level
	if level > a.backpressurePeak {
		a.backpressurePeak = level
	}
}

func (a *aggregator) snapshot(reset bool) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		WindowSecs:   uint64(time.Since(a.lastReset) / time.Second),
		TotalScans:   a.totalScans,
		Successes:    a.successes,
		Failures:     a.failures,
		SuccessRate:  ratio(a.successes, a.totalScans) * 100,
		AvgLatencyMs: avgMs(a.successDuration, a.successes),
		Backpressure: BackpressureSnapshot{Current: a.backpressureLevel, Peak: a.backpressurePeak},
		PerType:      make([]TypeSnapshot, 0, len(a.perType)),
	}
	if a.frameSamples > 0 {
		s.FrameIntervals = &FrameIntervalSnapshot{
			AvgMs:  avgMs(a.frameTotal, a.frameSamples),
			MaxMs:  durationMs(a.frameMax),
			LastMs: durationMs(a.frameLast),
		}
	}
	for urType, c := range a.perType {
		s.PerType = append(s.PerType, TypeSnapshot{
			URType:       urType,
			Successes:    c.successes,
			Failures:     c.failures,
			AvgLatencyMs: avgMs(c.successDuration, c.successes),
		})
	}
	sort.Slice(s.PerType, func(i, j int) bool { return s.PerType[i].URType < s.PerType[j].URType })

	if reset {
		a.totalScans = 0
		a.successes = 0
		a.failures = 0
		a.successDuration = 0
		a.perType = make(map[string]*typeCounters)
		a.lastReset = time.Now()
		a.frameTotal = 0
		a.frameSamples = 0
		a.frameMax = 0
		a.backpressurePeak = a.backpressureLevel
	}
	return s
}

// Snapshot summarises one reporting window.
type Snapshot struct {
	WindowSecs     uint64                 `json:"window_secs"`
	TotalScans     uint64                 `json:"total_scans"`
	Successes      uint64                 `json:"successes"`
	Failures       uint64                 `json:"failures"`
	SuccessRate    float64                `json:"success_rate"`
	AvgLatencyMs   float64                `json:"avg_latency_ms"`
	FrameIntervals *FrameIntervalSnapshot `json:"frame_intervals"`
	Backpressure   BackpressureSnapshot   `json:"backpressure"`
	PerType        []TypeSnapshot         `json:"per_type"`
}

type FrameIntervalSnapshot struct {
	AvgMs  float64 `json:"avg_ms"`
	MaxMs  float64 `json:"max_ms"`
	LastMs float64 `json:"last_ms"`
}

type BackpressureSnapshot struct {
	Current uint64 `json:"current"`
	Peak    uint64 `json:"peak"`
}

type TypeSnapshot struct {
	URType       string  `json:"ur_type"`
	Successes    uint64  `json:"successes"`
	Failures     uint64  `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Breakdown formats the per-type counters on one line, e.g.
// "bytes: 3 ok (avg 1.2 ms), eth-sign-request: 1 ok / 2 err (avg 4.0 ms)".
func (s Snapshot) Breakdown() string {
	entries := make([]string, 0, len(s.PerType))
	for _, t := range s.PerType {
		if t.Failures > 0 {
			entries = append(entries, fmt.Sprintf("%s: %d ok / %d err (avg %.1f ms)", t.URType, t.Successes, t.Failures, t.AvgLatencyMs))
		} else {
			entries = append(entries, fmt.Sprintf("%s: %d ok (avg %.1f ms)", t.URType, t.Successes, t.AvgLatencyMs))
		}
	}
	return strings.Join(entries, ", ")
}

func ratio(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func avgMs(total time.Duration, samples uint64) float64 {
	if samples == 0 {
		return 0
	}
	return durationMs(total) / float64(samples)
}

func durationMs(d time.Duration) float64 {
	return d.Seconds() * 1000
}
