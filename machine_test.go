package roadsim

import (
	"testing"
	"time"
)

func TestSimulation_PhaseOrderIsMonotonic(t *testing.T) {
	sim, _ := newTestSimulation(t)

	prev := sim.Phase()
	for i := 0; i < 2000 && !sim.Phase().Terminal(); i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		cur := sim.Phase()
		if cur < prev {
			t.Fatalf("phase went backwards: %s -> %s", prev, cur)
		}
		if cur > prev+1 {
			t.Fatalf("phase skipped: %s -> %s", prev, cur)
		}
		prev = cur
	}

	AssertPhase(t, sim, PhaseHalted)
}

func TestSimulation_PhaseSequenceComplete(t *testing.T) {
	sim, sink := newTestSimulation(t)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	want := []Phase{PhaseColliding, PhaseReporting, PhaseAlerting, PhaseBraking, PhaseHalted}
	var got []Phase
	for _, e := range sink.All() {
		if e.Kind == EventPhaseChanged {
			got = append(got, e.Phase)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d phase changes, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("phase change %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSimulation_ApproachDisplacement(t *testing.T) {
	sim, _ := newTestSimulation(t)

	for i := 0; i < sim.Scenario().ApproachTicks; i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}

	left := findVehicle(t, sim, 1)
	right := findVehicle(t, sim, 2)
	if left.X != 446 {
		t.Errorf("Expected left vehicle at x=446, got %d", left.X)
	}
	if right.X != 554 {
		t.Errorf("Expected right vehicle at x=554, got %d", right.X)
	}
	if sep := right.X - left.X; sep != 108 {
		t.Errorf("Expected separation 108, got %d", sep)
	}
}

func TestSimulation_TrailingReachesBrakeLine(t *testing.T) {
	sim, _ := newTestSimulation(t)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase() == PhaseAlerting })

	// (170 - 60) / 2 descent ticks until both trailing vehicles hit the line
	descentTicks := 0
	for sim.Phase() == PhaseAlerting {
		if err := sim.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		descentTicks++
	}

	if descentTicks != 55 {
		t.Errorf("Expected 55 descent ticks, got %d", descentTicks)
	}
	for _, id := range []int{3, 4} {
		v := findVehicle(t, sim, id)
		if v.Y != sim.Scenario().BrakeLine() {
			t.Errorf("vehicle %d: expected y=%d, got %d", id, sim.Scenario().BrakeLine(), v.Y)
		}
	}
}

func TestSimulation_SingletonEventsEmittedOnce(t *testing.T) {
	sim, sink := newTestSimulation(t)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	for _, kind := range []EventKind{
		EventCollisionDetected,
		EventAccidentReported,
		EventTelemetrySent,
		EventBroadcastSent,
		EventAutoBrakeApplied,
	} {
		if n := sink.Count(kind); n != 1 {
			t.Errorf("Expected exactly one %s event, got %d", kind, n)
		}
	}
	if n := sink.Count(EventFaultRaised); n != 0 {
		t.Errorf("Expected no fault events in a normal run, got %d", n)
	}
}

func TestSimulation_MovingFlagFlipsOnce(t *testing.T) {
	sim, _ := newTestSimulation(t)

	flips := map[int]int{}
	last := map[int]bool{}
	for _, v := range sim.Snapshot() {
		last[v.ID] = v.Moving
	}

	for !sim.Phase().Terminal() {
		if err := sim.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		for _, v := range sim.Snapshot() {
			if v.Moving != last[v.ID] {
				if v.Moving {
					t.Fatalf("vehicle %d resumed moving after stopping", v.ID)
				}
				flips[v.ID]++
				last[v.ID] = v.Moving
			}
		}
	}

	for id, n := range flips {
		if n > 1 {
			t.Errorf("vehicle %d: moving flag flipped %d times", id, n)
		}
	}
	for _, id := range []int{3, 4} {
		v := findVehicle(t, sim, id)
		if v.Moving {
			t.Errorf("trailing vehicle %d still moving after halt", id)
		}
		if v.Status != StatusStopped {
			t.Errorf("trailing vehicle %d: expected status Stopped, got %s", id, v.Status)
		}
	}
}

func TestSimulation_StatusLabels(t *testing.T) {
	sim, _ := newTestSimulation(t)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase() == PhaseReporting })
	for _, id := range []int{1, 2} {
		if v := findVehicle(t, sim, id); v.Status != StatusAccident {
			t.Errorf("colliding vehicle %d: expected Accident, got %s", id, v.Status)
		}
	}

	stepUntil(t, sim, 2000, func() bool { return sim.Phase() == PhaseAlerting })
	for _, id := range []int{3, 4} {
		if v := findVehicle(t, sim, id); v.Status != StatusAlert {
			t.Errorf("trailing vehicle %d: expected Alert, got %s", id, v.Status)
		}
	}
}

func TestSimulation_DetectionRetriesThenFault(t *testing.T) {
	platform := &scriptedPlatform{results: []bool{false}}
	sim, err := NewSimulation(DefaultScenario(), platform, WithClock(instantClock{}))
	if err != nil {
		t.Fatalf("Expected no error creating simulation, got: %v", err)
	}
	sink := NewTestSink()
	sim.AddSink(sink)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	AssertPhase(t, sim, PhaseFault)
	if !IsDetectionError(sim.Err()) {
		t.Errorf("Expected detection error, got: %v", sim.Err())
	}
	if platform.Calls() != sim.Scenario().DetectionRetries {
		t.Errorf("Expected %d detection attempts, got %d",
			sim.Scenario().DetectionRetries, platform.Calls())
	}
	if n := sink.Count(EventFaultRaised); n != 1 {
		t.Errorf("Expected exactly one fault event, got %d", n)
	}
	if n := sink.Count(EventCollisionDetected); n != 0 {
		t.Errorf("Expected no collision event on detection failure, got %d", n)
	}
}

func TestSimulation_DetectionRecoversOnRetry(t *testing.T) {
	platform := &scriptedPlatform{results: []bool{false, true}}
	sim, err := NewSimulation(DefaultScenario(), platform, WithClock(instantClock{}))
	if err != nil {
		t.Fatalf("Expected no error creating simulation, got: %v", err)
	}
	sink := NewTestSink()
	sim.AddSink(sink)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	AssertPhase(t, sim, PhaseHalted)
	if n := sink.Count(EventCollisionDetected); n != 1 {
		t.Errorf("Expected one collision event after retry, got %d", n)
	}
}

func TestSimulation_TransitionTimeoutFaults(t *testing.T) {
	scenario := DefaultScenario()
	scenario.ApproachTicks = 100000
	scenario.PhaseTimeout = Duration(3 * scenario.Interval(PhaseApproaching))

	sim, err := NewSimulation(scenario, StubPlatform{}, WithClock(instantClock{}))
	if err != nil {
		t.Fatalf("Expected no error creating simulation, got: %v", err)
	}

	stepUntil(t, sim, 100, func() bool { return sim.Phase().Terminal() })

	AssertPhase(t, sim, PhaseFault)
	if !IsTransitionError(sim.Err()) {
		t.Errorf("Expected transition timeout error, got: %v", sim.Err())
	}
	if GetErrorCode(sim.Err()) != ErrCodeTransitionTimeout {
		t.Errorf("Expected timeout error code, got %v", GetErrorCode(sim.Err()))
	}
}

func TestSimulation_PositionInvariantFaults(t *testing.T) {
	// An approach long enough to push the colliding pair past the window edge
	scenario := DefaultScenario()
	scenario.ApproachTicks = 100000
	scenario.PhaseTimeout = Duration(time.Hour)

	sim, err := NewSimulation(scenario, StubPlatform{}, WithClock(instantClock{}))
	if err != nil {
		t.Fatalf("Expected no error creating simulation, got: %v", err)
	}
	sink := NewTestSink()
	sim.AddSink(sink)

	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	AssertPhase(t, sim, PhaseFault)
	if !IsInvariantError(sim.Err()) {
		t.Errorf("Expected invariant error, got: %v", sim.Err())
	}
	if GetErrorCode(sim.Err()) != ErrCodeInvariantViolation {
		t.Errorf("Expected invariant violation code, got %v", GetErrorCode(sim.Err()))
	}
	if n := sink.Count(EventFaultRaised); n != 1 {
		t.Errorf("Expected exactly one fault event, got %d", n)
	}
}

func TestSimulation_StepAfterTerminal(t *testing.T) {
	sim, _ := newTestSimulation(t)
	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	if err := sim.Step(); err == nil {
		t.Error("Expected error stepping a finished simulation")
	}
}

func TestSimulation_RunLoopCompletes(t *testing.T) {
	sim, sink := newTestSimulation(t)

	if err := sim.Start(); err != nil {
		t.Fatalf("Expected no error starting simulation, got: %v", err)
	}
	if err := sim.Start(); err == nil {
		t.Error("Expected error when starting an already started simulation")
	}

	if err := sim.Wait(); err != nil {
		t.Fatalf("Expected clean run, got: %v", err)
	}
	AssertPhase(t, sim, PhaseHalted)
	if n := sink.Count(EventAutoBrakeApplied); n != 1 {
		t.Errorf("Expected exactly one brake event, got %d", n)
	}
}

func TestSimulation_WaitBeforeStart(t *testing.T) {
	sim, _ := newTestSimulation(t)

	err := sim.Wait()
	if err == nil {
		t.Fatal("Expected error waiting on a never-started simulation")
	}
	if GetErrorCode(err) != ErrCodeInvalidState {
		t.Errorf("Expected invalid state error code, got %v", GetErrorCode(err))
	}
}

func TestSimulation_StopTerminatesPromptly(t *testing.T) {
	// A clock that never fires: the loop must still honor Stop
	sim, err := NewSimulation(DefaultScenario(), StubPlatform{}, WithClock(blockedClock{}))
	if err != nil {
		t.Fatalf("Expected no error creating simulation, got: %v", err)
	}
	sink := NewTestSink()
	sim.AddSink(sink)

	if err := sim.Start(); err != nil {
		t.Fatalf("Expected no error starting simulation, got: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		sim.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not terminate the loop promptly")
	}

	if n := sink.Count(EventAutoBrakeApplied); n != 0 {
		t.Errorf("Expected no terminal events after early stop, got %d", n)
	}
	AssertPhase(t, sim, PhaseApproaching)
}

func TestSimulation_PositionsOnlyChangeWhileMoving(t *testing.T) {
	sim, sink := newTestSimulation(t)
	stepUntil(t, sim, 2000, func() bool { return sim.Phase().Terminal() })

	after := sim.Snapshot()

	// Drive the sinks again with a stale event; consumer side must not
	// feed back into simulation state
	if e, ok := sink.Last(EventVehicleMoved); ok {
		sink.Notify(e)
		sink.Notify(e)
	}

	for i, v := range sim.Snapshot() {
		if v != after[i] {
			t.Errorf("vehicle %d changed after terminal phase", v.ID)
		}
	}
}

// blockedClock never ticks
type blockedClock struct{}

func (blockedClock) After(time.Duration) <-chan time.Time {
	return nil
}
