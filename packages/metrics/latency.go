package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1us to 60s, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Latency aggregates the wall time of repeated sends.
type Latency struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	errors    int64
}

type LatencySummary struct {
	Count  int64
	Errors int64
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
}

func NewLatency() *Latency {
	return &Latency{histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)}
}

// Record adds one send. Durations outside the histogram range are clamped.
func (l *Latency) Record(d time.Duration, failed bool) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.histogram.RecordValue(us)
	if failed {
		l.errors++
	}
}

func (l *Latency) Summary() LatencySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	h := l.histogram
	if h.TotalCount() == 0 {
		return LatencySummary{}
	}
	return LatencySummary{
		Count:  h.TotalCount(),
		Errors: l.errors,
		Min:    us(h.Min()),
		Max:    us(h.Max()),
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:    us(h.ValueAtQuantile(50)),
		P95:    us(h.ValueAtQuantile(95)),
		P99:    us(h.ValueAtQuantile(99)),
	}
}
