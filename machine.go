// Package roadsim provides a deterministic car-to-car accident and
// auto-brake simulation: four vehicles move through a scripted sequence of
// phases (approach, collision, reporting, alerting, braking, halt) while
// typed events stream to attached sinks and external effects go through a
// pluggable platform interface.
package roadsim

import (
	"fmt"
	"sync"
	"time"
)

// Simulation drives the scripted road-safety scenario: it owns the vehicles
// and the global phase, advances both once per tick, and emits discrete
// events to the registered sinks. All mutation happens inside tick
// processing under the internal lock; external readers use Snapshot.
type Simulation struct {
	mutex    sync.RWMutex
	scenario Scenario
	platform Platform
	sinks    *SinkManager
	clock    Clock

	phase    Phase
	vehicles []*Vehicle
	collide  []*Vehicle // the colliding pair, lower X first
	trail    []*Vehicle

	ticksInPhase      int
	timeInPhase       time.Duration
	detected          bool
	detectionAttempts int
	emitted           map[EventKind]bool
	err               error

	started  bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a simulation
type Option func(*Simulation)

// WithClock replaces the wall clock driving the tick loop
func WithClock(clock Clock) Option {
	return func(s *Simulation) {
		s.clock = clock
	}
}

// NewSimulation creates a simulation for the given scenario and platform
func NewSimulation(scenario Scenario, platform Platform, opts ...Option) (*Simulation, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	if platform == nil {
		platform = StubPlatform{}
	}

	s := &Simulation{
		scenario: scenario,
		platform: platform,
		sinks:    NewSinkManager(),
		clock:    wallClock{},
		phase:    PhaseApproaching,
		emitted:  make(map[EventKind]bool),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, vc := range scenario.Vehicles {
		v := &Vehicle{
			ID:     vc.ID,
			X:      vc.X,
			Y:      vc.Y,
			Color:  vc.Color,
			Status: StatusNormal,
			Moving: true,
			Role:   vc.Role,
		}
		s.vehicles = append(s.vehicles, v)
		switch vc.Role {
		case RoleColliding:
			s.collide = append(s.collide, v)
		case RoleTrailing:
			s.trail = append(s.trail, v)
		}
	}

	if s.collide[0].X > s.collide[1].X {
		s.collide[0], s.collide[1] = s.collide[1], s.collide[0]
	}
	if s.collide[0].X == s.collide[1].X {
		return nil, NewConfigurationError("vehicles", "colliding pair must start apart")
	}
	s.collide[0].dir = 1
	s.collide[1].dir = -1

	return s, nil
}

// AddSink registers a sink for all subsequently emitted events
func (s *Simulation) AddSink(sink Sink) {
	s.sinks.AddSink(sink)
}

// RemoveSink unregisters a sink
func (s *Simulation) RemoveSink(sink Sink) {
	s.sinks.RemoveSink(sink)
}

// Phase returns the current global phase
func (s *Simulation) Phase() Phase {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.phase
}

// Err returns the error that sent the simulation into the fault phase
func (s *Simulation) Err() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.err
}

// Snapshot returns a committed post-tick copy of every vehicle
func (s *Simulation) Snapshot() []Vehicle {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]Vehicle, len(s.vehicles))
	for i, v := range s.vehicles {
		out[i] = *v
	}
	return out
}

// Scenario returns the configuration the simulation was built from
func (s *Simulation) Scenario() Scenario {
	return s.scenario
}

// Step advances the simulation by exactly one tick. It is the deterministic
// seam: the run loop calls it on the clock's cadence, and tests call it
// directly. Returns an error only when the simulation is already finished.
func (s *Simulation) Step() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.phase.Terminal() {
		return NewSimulationError(ErrCodeInvalidState, "Step", "simulation already finished")
	}

	s.ticksInPhase++
	s.timeInPhase += s.scenario.Interval(s.phase)

	switch s.phase {
	case PhaseApproaching:
		s.tickApproaching()
	case PhaseColliding:
		s.tickColliding()
	case PhaseAlerting:
		s.tickAlerting()
	}
	if s.phase == PhaseFault {
		return nil
	}

	if s.conditionGated() && s.timeInPhase > time.Duration(s.scenario.PhaseTimeout) {
		next := s.nextPhase()
		s.fault(NewTransitionTimeoutError(s.phase, next,
			fmt.Sprintf("exit condition not met within %s", time.Duration(s.scenario.PhaseTimeout))))
		return nil
	}

	if next, ok := s.exitCondition(); ok {
		s.advance(next)
	}
	return nil
}

// conditionGated reports whether the current phase exits on a computed
// condition rather than a fixed delay
func (s *Simulation) conditionGated() bool {
	switch s.phase {
	case PhaseApproaching, PhaseColliding, PhaseAlerting:
		return true
	}
	return false
}

// nextPhase returns the successor in the fixed sequence
func (s *Simulation) nextPhase() Phase {
	return s.phase + 1
}

// exitCondition evaluates the current phase's trigger predicate
func (s *Simulation) exitCondition() (Phase, bool) {
	switch s.phase {
	case PhaseApproaching:
		return PhaseColliding, s.ticksInPhase >= s.scenario.ApproachTicks
	case PhaseColliding:
		return PhaseReporting, s.detected
	case PhaseReporting:
		return PhaseAlerting, s.timeInPhase >= time.Duration(s.scenario.AlertDelay)
	case PhaseAlerting:
		return PhaseBraking, s.trailingAtBrakeLine()
	case PhaseBraking:
		return PhaseHalted, s.timeInPhase >= time.Duration(s.scenario.BrakeDelay)
	}
	return s.phase, false
}

// advance moves to the next phase and runs its entry action.
// The phase index only ever moves forward, one phase per tick.
func (s *Simulation) advance(next Phase) {
	s.phase = next
	s.ticksInPhase = 0
	s.timeInPhase = 0
	s.emit(newEvent(EventPhaseChanged, s.phase, fmt.Sprintf("entering %s", s.phase)))

	switch next {
	case PhaseColliding:
		s.attemptDetection()
	case PhaseReporting:
		s.enterReporting()
	case PhaseAlerting:
		s.enterAlerting()
	case PhaseHalted:
		s.enterHalted()
	case PhaseFault:
		e := newEvent(EventFaultRaised, s.phase, "simulation aborted")
		e.Err = s.err
		s.emit(e)
	}
}

// fault records the error and enters the terminal fault phase
func (s *Simulation) fault(err error) {
	s.err = err
	s.advance(PhaseFault)
}

// tickApproaching moves the colliding pair toward each other
func (s *Simulation) tickApproaching() {
	for _, v := range s.collide {
		if v.advanceLateral(s.scenario.Step) {
			if !s.inBounds(v) {
				s.fault(NewInvariantError(v.ID, "position left the window during approach"))
				return
			}
			s.emit(newVehicleEvent(EventVehicleMoved, s.phase, v, ""))
		}
	}
}

// tickColliding retries the detection predicate until confirmed or exhausted
func (s *Simulation) tickColliding() {
	if s.detected {
		return
	}
	if s.detectionAttempts >= s.scenario.DetectionRetries {
		s.fault(NewDetectionError(s.detectionAttempts))
		return
	}
	s.attemptDetection()
}

// attemptDetection runs the vision predicate once. Detection is checked,
// never assumed: only a confirmed result marks the pair as crashed.
func (s *Simulation) attemptDetection() {
	s.detectionAttempts++
	if !s.platform.DetectCollision() {
		return
	}
	s.detected = true
	s.emit(newEvent(EventCollisionDetected, s.phase, "Collision detected by vision platform"))
	for _, v := range s.collide {
		s.setStatus(v, StatusAccident)
	}
}

// enterReporting files the accident with the three cloud platforms
func (s *Simulation) enterReporting() {
	s.emit(newEvent(EventAccidentReported, s.phase,
		s.platform.ReportAccident(s.scenario.Location)))
	s.emit(newEvent(EventTelemetrySent, s.phase,
		s.platform.Send(s.collide[0].ID, "Accident Data")))
	s.emit(newEvent(EventBroadcastSent, s.phase,
		s.platform.Publish("Accident Alert to Nearby Vehicles")))
}

// enterAlerting flags the trailing pair
func (s *Simulation) enterAlerting() {
	for _, v := range s.trail {
		s.setStatus(v, StatusAlert)
	}
}

// tickAlerting descends the trailing pair toward the brake line
func (s *Simulation) tickAlerting() {
	line := s.scenario.BrakeLine()
	for _, v := range s.trail {
		if v.advanceDescent(s.scenario.Step, line) {
			if !s.inBounds(v) {
				s.fault(NewInvariantError(v.ID, "position left the window during descent"))
				return
			}
			s.emit(newVehicleEvent(EventVehicleMoved, s.phase, v, ""))
		}
	}
}

// trailingAtBrakeLine reports whether every trailing vehicle reached the line
func (s *Simulation) trailingAtBrakeLine() bool {
	line := s.scenario.BrakeLine()
	for _, v := range s.trail {
		if v.Y < line {
			return false
		}
	}
	return true
}

// enterHalted applies the automatic brake. This is the only place the
// moving flag ever flips.
func (s *Simulation) enterHalted() {
	s.emit(newEvent(EventAutoBrakeApplied, s.phase, "AUTO BRAKE APPLIED - VEHICLES STOPPED"))
	for _, v := range s.trail {
		v.Moving = false
		s.setStatus(v, StatusStopped)
	}
}

// setStatus updates a vehicle's status label and notifies sinks
func (s *Simulation) setStatus(v *Vehicle, status Status) {
	if v.Status == status {
		return
	}
	v.Status = status
	s.emit(newVehicleEvent(EventStatusChanged, s.phase, v, ""))
}

// inBounds checks the position invariant
func (s *Simulation) inBounds(v *Vehicle) bool {
	return v.X >= 0 && v.X <= s.scenario.WindowW && v.Y >= 0 && v.Y <= s.scenario.WindowH
}

// emit delivers an event to the sinks, enforcing at-most-once for
// singleton kinds
func (s *Simulation) emit(e Event) {
	if e.Kind.Singleton() {
		if s.emitted[e.Kind] {
			return
		}
		s.emitted[e.Kind] = true
	}
	s.sinks.Notify(e)
}

// PhaseGraph returns the phase transition graph of the scenario machine
func PhaseGraph() map[Phase][]Phase {
	return map[Phase][]Phase{
		PhaseApproaching: {PhaseColliding, PhaseFault},
		PhaseColliding:   {PhaseReporting, PhaseFault},
		PhaseReporting:   {PhaseAlerting},
		PhaseAlerting:    {PhaseBraking, PhaseFault},
		PhaseBraking:     {PhaseHalted},
		PhaseHalted:      {},
		PhaseFault:       {},
	}
}
