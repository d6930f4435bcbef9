package roadsim

import (
	"sync"
	"testing"
	"time"
)

// TestSink is a capturing sink for tests
type TestSink struct {
	mutex  sync.RWMutex
	Events []Event
}

// NewTestSink creates a new capturing sink
func NewTestSink() *TestSink {
	return &TestSink{Events: make([]Event, 0)}
}

// Notify implements the Sink interface
func (ts *TestSink) Notify(event Event) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ts.Events = append(ts.Events, event)
}

// All returns a copy of every captured event in delivery order
func (ts *TestSink) All() []Event {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	out := make([]Event, len(ts.Events))
	copy(out, ts.Events)
	return out
}

// Count returns how many events of the given kind were delivered
func (ts *TestSink) Count(kind EventKind) int {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	n := 0
	for _, e := range ts.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent event of the given kind
func (ts *TestSink) Last(kind EventKind) (Event, bool) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	for i := len(ts.Events) - 1; i >= 0; i-- {
		if ts.Events[i].Kind == kind {
			return ts.Events[i], true
		}
	}
	return Event{}, false
}

// instantClock fires immediately, letting the run loop race to completion
type instantClock struct{}

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// scriptedPlatform overrides detection results in order, then repeats the
// final entry
type scriptedPlatform struct {
	StubPlatform
	mutex   sync.Mutex
	results []bool
	calls   int
}

func (p *scriptedPlatform) DetectCollision() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.calls++
	if len(p.results) == 0 {
		return true
	}
	i := p.calls - 1
	if i >= len(p.results) {
		i = len(p.results) - 1
	}
	return p.results[i]
}

func (p *scriptedPlatform) Calls() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.calls
}

// newTestSimulation creates a default-scenario simulation with a capturing
// sink attached and no real waiting
func newTestSimulation(t *testing.T, opts ...Option) (*Simulation, *TestSink) {
	t.Helper()
	opts = append([]Option{WithClock(instantClock{})}, opts...)
	sim, err := NewSimulation(DefaultScenario(), StubPlatform{}, opts...)
	if err != nil {
		t.Fatalf("Expected no error creating simulation, got: %v", err)
	}
	sink := NewTestSink()
	sim.AddSink(sink)
	return sim, sink
}

// stepUntil advances the simulation until the predicate holds, failing the
// test if maxSteps is exhausted first
func stepUntil(t *testing.T, sim *Simulation, maxSteps int, cond func() bool) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if cond() {
			return
		}
		if err := sim.Step(); err != nil {
			t.Fatalf("Step failed after %d steps: %v", i, err)
		}
	}
	if !cond() {
		t.Fatalf("condition not reached within %d steps (phase %s)", maxSteps, sim.Phase())
	}
}

// AssertPhase fails the test if the simulation is not in the given phase
func AssertPhase(t *testing.T, sim *Simulation, want Phase) {
	t.Helper()
	if got := sim.Phase(); got != want {
		t.Errorf("Expected phase %s, got %s", want, got)
	}
}

func findVehicle(t *testing.T, sim *Simulation, id int) Vehicle {
	t.Helper()
	for _, v := range sim.Snapshot() {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("vehicle %d not found in snapshot", id)
	return Vehicle{}
}
