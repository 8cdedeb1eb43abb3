// internal/ratemon/monitor.go
package ratemon

import (
	"fmt"
	"sync"
	"time"
)

// WarningLevel grades current usage against the upstream hourly cap.
type WarningLevel string

const (
	LevelSafe     WarningLevel = "safe"
	LevelCaution  WarningLevel = "caution"
	LevelWarning  WarningLevel = "warning"
	LevelCritical WarningLevel = "critical"
)

// Ladder thresholds as fractions of the hourly cap.
const (
	cautionFraction  = 0.50
	warningFraction  = 0.75
	criticalFraction = 0.90
)

// Stats is a point-in-time snapshot of outbound request accounting.
type Stats struct {
	TotalRequests            int
	RequestsLastMinute       int
	RequestsLastHour         int
	AverageRequestsPerSecond float64
	EstimatedHourlyRate      int
	WarningLevel             WarningLevel
}

// Verdict is the throttle decision derived from current usage.
type Verdict struct {
	Throttle bool
	Wait     time.Duration
	Reason   string
}

// Monitor counts outbound requests over a sliding one-hour window and
// projects the hourly rate so a burst is visible long before an hour of
// history exists. Purely in-memory; safe for concurrent use.
type Monitor struct {
	mu         sync.Mutex
	hourlyCap  int
	timestamps []time.Time
	total      int
	now        func() time.Time
}

// NewMonitor creates a monitor for the given upstream hourly request cap.
func NewMonitor(hourlyCap int) *Monitor {
	return &Monitor{
		hourlyCap: hourlyCap,
		now:       time.Now,
	}
}

// RecordRequest registers one outbound call at the current instant.
func (m *Monitor) RecordRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timestamps = append(m.timestamps, m.now())
	m.total++
}

// Reset clears all counters.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timestamps = nil
	m.total = 0
}

// Stats prunes entries older than one hour and aggregates the remainder.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.prune(now)

	lastMinute := 0
	minuteCutoff := now.Add(-time.Minute)
	for i := len(m.timestamps) - 1; i >= 0; i-- {
		if m.timestamps[i].Before(minuteCutoff) {
			break
		}
		lastMinute++
	}

	s := Stats{
		TotalRequests:      m.total,
		RequestsLastMinute: lastMinute,
		RequestsLastHour:   len(m.timestamps),
	}

	if len(m.timestamps) > 0 {
		elapsed := now.Sub(m.timestamps[0]).Seconds()
		if elapsed > 0 {
			s.AverageRequestsPerSecond = float64(len(m.timestamps)) / elapsed
		}
	}

	s.EstimatedHourlyRate = m.estimateHourlyRate(now, lastMinute)
	s.WarningLevel = m.warningLevel(s.EstimatedHourlyRate)
	return s
}

// ShouldThrottle fires once projected usage crosses the warning threshold,
// returning a wait sized to pull the projected rate back under the cap.
func (m *Monitor) ShouldThrottle() Verdict {
	s := m.Stats()

	if s.WarningLevel != LevelWarning && s.WarningLevel != LevelCritical {
		return Verdict{}
	}

	// Spacing needed to run exactly at the cap, versus the spacing we are
	// actually running at over the last minute.
	desired := time.Duration(float64(time.Hour) / float64(m.hourlyCap))
	observed := desired
	if s.RequestsLastMinute > 0 {
		observed = time.Minute / time.Duration(s.RequestsLastMinute)
	}

	wait := desired - observed
	if wait < 500*time.Millisecond {
		wait = 500 * time.Millisecond
	}
	if wait > 30*time.Second {
		wait = 30 * time.Second
	}

	return Verdict{
		Throttle: true,
		Wait:     wait,
		Reason:   fmt.Sprintf("estimated hourly rate %d approaching cap %d (%s)", s.EstimatedHourlyRate, m.hourlyCap, s.WarningLevel),
	}
}

// prune drops timestamps older than one hour. Caller must hold mu.
func (m *Monitor) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(m.timestamps) && m.timestamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		m.timestamps = m.timestamps[i:]
	}
}

// estimateHourlyRate extrapolates from the most recent short window rather
// than counting a full hour, so a just-started burst shows up immediately.
// Caller must hold mu.
func (m *Monitor) estimateHourlyRate(now time.Time, lastMinute int) int {
	if len(m.timestamps) == 0 {
		return 0
	}
	if lastMinute == 0 {
		// Nothing in the last minute: fall back to the hourly count, which
		// is already the rate over its own window.
		return len(m.timestamps)
	}

	// Window spans from the oldest request inside the last minute to now,
	// floored so one lone request does not project to an absurd rate.
	oldest := m.timestamps[len(m.timestamps)-lastMinute]
	window := now.Sub(oldest)
	if window < time.Second {
		window = time.Second
	}
	return int(float64(lastMinute) / window.Seconds() * 3600)
}

func (m *Monitor) warningLevel(estimated int) WarningLevel {
	if m.hourlyCap <= 0 {
		return LevelSafe
	}
	frac := float64(estimated) / float64(m.hourlyCap)
	switch {
	case frac >= criticalFraction:
		return LevelCritical
	case frac >= warningFraction:
		return LevelWarning
	case frac >= cautionFraction:
		return LevelCaution
	default:
		return LevelSafe
	}
}

// SetClock overrides the time source. Test hook.
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
