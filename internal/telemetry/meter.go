package telemetry

import "time"

// Clock abstracts time.Now so tests can drive elapsed time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Meter tracks the cumulative byte count of one run against its total
// and derives Stats from it.
type Meter struct {
	clock     Clock
	start     time.Time
	total     int64
	processed int64
}

// NewMeter starts measuring now. A nil clock means the wall clock.
func NewMeter(clock Clock, total int64) *Meter {
	if clock == nil {
		clock = RealClock()
	}
	return &Meter{
		clock: clock,
		start: clock.Now(),
		total: total,
	}
}

// Add records n more processed bytes and returns the updated stats.
func (m *Meter) Add(n int64) Stats {
	m.processed += n
	return m.Stats()
}

// Stats reports the current figures without changing the count.
func (m *Meter) Stats() Stats {
	return Update(m.processed, m.total, m.Elapsed())
}

func (m *Meter) Processed() int64 { return m.processed }

func (m *Meter) Total() int64 { return m.total }

func (m *Meter) Elapsed() time.Duration {
	return m.clock.Now().Sub(m.start)
}

// AverageSpeed is the throughput over the whole run so far.
func (m *Meter) AverageSpeed() float64 {
	secs := m.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(m.processed) / secs
}
