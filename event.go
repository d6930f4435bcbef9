package roadsim

import (
	"time"

	"github.com/google/uuid"
)

// EventKind represents the category of a simulation event
type EventKind string

const (
	// Singleton events, emitted at most once per run

	// EventCollisionDetected fires when the vision platform confirms the crash
	EventCollisionDetected EventKind = "CollisionDetected"
	// EventAccidentReported fires when the accident is filed with the maps platform
	EventAccidentReported EventKind = "AccidentReported"
	// EventTelemetrySent fires when crash telemetry reaches the device platform
	EventTelemetrySent EventKind = "TelemetrySent"
	// EventBroadcastSent fires when the alert is published to nearby vehicles
	EventBroadcastSent EventKind = "BroadcastSent"
	// EventAutoBrakeApplied fires when the trailing pair is halted
	EventAutoBrakeApplied EventKind = "AutoBrakeApplied"
	// EventFaultRaised fires when a run aborts into the fault phase
	EventFaultRaised EventKind = "FaultRaised"

	// Repeating events

	// EventStatusChanged fires whenever a vehicle's status label changes
	EventStatusChanged EventKind = "StatusChanged"
	// EventVehicleMoved fires whenever a vehicle's position changes
	EventVehicleMoved EventKind = "VehicleMoved"
	// EventPhaseChanged fires on every phase transition
	EventPhaseChanged EventKind = "PhaseChanged"
)

// Singleton reports whether the kind may be emitted at most once per run
func (k EventKind) Singleton() bool {
	switch k {
	case EventCollisionDetected, EventAccidentReported, EventTelemetrySent,
		EventBroadcastSent, EventAutoBrakeApplied, EventFaultRaised:
		return true
	}
	return false
}

// Event is a discrete notification emitted by the simulation core.
// Events are immutable once emitted; sinks are pure consumers.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Phase     Phase     `json:"-"`
	PhaseName string    `json:"phase"`
	Message   string    `json:"message,omitempty"`

	// Vehicle fields, populated for StatusChanged and VehicleMoved
	VehicleID int    `json:"vehicle_id,omitempty"`
	Status    Status `json:"status,omitempty"`
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`

	// Err is populated for FaultRaised
	Err error `json:"-"`
}

// newEvent creates an event stamped with the current phase and wall time
func newEvent(kind EventKind, phase Phase, message string) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: time.Now(),
		Phase:     phase,
		PhaseName: phase.String(),
		Message:   message,
	}
}

// newVehicleEvent creates an event carrying a vehicle's committed state
func newVehicleEvent(kind EventKind, phase Phase, v *Vehicle, message string) Event {
	e := newEvent(kind, phase, message)
	e.VehicleID = v.ID
	e.Status = v.Status
	e.X = v.X
	e.Y = v.Y
	return e
}
