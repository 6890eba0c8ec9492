package shared

import (
	"sync"
	"time"
)

// Clock abstracts "now" so calendar-dependent rules can be tested.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// NewRealClock creates a RealClock instance
func NewRealClock() Clock {
	return RealClock{}
}

// MockClock is a controllable clock for tests.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMockClock creates a MockClock starting at the given time.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// SetTime jumps the clock to t.
func (m *MockClock) SetTime(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}
