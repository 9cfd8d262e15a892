package core

import (
	"sort"
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// Metrics counts reported messages per id and keeps a rolling average of
// the time spent validating queue submissions.
type Metrics struct {
	mu sync.Mutex

	counts map[string]uint64

	submitAVGCounter uint8
	submitTimes      [AVG_COUNT]time.Duration
	submitAvg        time.Duration
	submits          uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		counts: make(map[string]uint64),
	}
}

// Count bumps the counter of id and returns the new value.
func (m *Metrics) Count(id string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[id]++
	return m.counts[id]
}

func (m *Metrics) Counter(id string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[id]
}

func (m *Metrics) SubmitUpdate(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submitTimes[m.submitAVGCounter] = elapsed
	if m.submitAVGCounter == AVG_COUNT-1 {
		var sum time.Duration
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.submitTimes[i]
		}
		m.submitAvg = sum / time.Duration(AVG_COUNT)
	}
	m.submitAVGCounter++
	m.submitAVGCounter %= AVG_COUNT
	m.submits++
}

// SubmitTime returns the number of timed submissions and the average over the
// last full window.
func (m *Metrics) SubmitTime() (uint64, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submits, m.submitAvg
}

type MetricCount struct {
	ID    string
	Count uint64
}

// Snapshot returns the counters sorted by descending count, then id.
func (m *Metrics) Snapshot() []MetricCount {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MetricCount, 0, len(m.counts))
	for id, c := range m.counts {
		out = append(out, MetricCount{ID: id, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}
