package roadsim

// Phase represents the single global stage of the scripted scenario
type Phase int

const (
	// Colliding pair closes laterally toward the accident point
	PhaseApproaching Phase = iota
	// Collision detection predicate runs against the vision platform
	PhaseColliding
	// Accident is reported to the cloud platforms
	PhaseReporting
	// Trailing pair is alerted and descends toward the brake line
	PhaseAlerting
	// Simulation holds while the automatic brake engages
	PhaseBraking
	// Terminal phase after the trailing pair has stopped
	PhaseHalted
	// Terminal phase entered when a run aborts
	PhaseFault
)

var phaseNames = map[Phase]string{
	PhaseApproaching: "approaching",
	PhaseColliding:   "colliding",
	PhaseReporting:   "reporting",
	PhaseAlerting:    "alerting",
	PhaseBraking:     "braking",
	PhaseHalted:      "halted",
	PhaseFault:       "fault",
}

// String returns the phase name
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the phase ends the run
func (p Phase) Terminal() bool {
	return p == PhaseHalted || p == PhaseFault
}

// Phases returns the normal phase sequence in order, excluding Fault
func Phases() []Phase {
	return []Phase{
		PhaseApproaching,
		PhaseColliding,
		PhaseReporting,
		PhaseAlerting,
		PhaseBraking,
		PhaseHalted,
	}
}

// Status represents a vehicle's displayed condition label
type Status string

const (
	// StatusNormal is the initial condition of every vehicle
	StatusNormal Status = "Normal"
	// StatusAccident marks a vehicle in the colliding pair after detection
	StatusAccident Status = "Accident"
	// StatusAlert marks a trailing vehicle warned about the accident
	StatusAlert Status = "Alert"
	// StatusStopped marks a trailing vehicle halted by the automatic brake
	StatusStopped Status = "Stopped"
)

// Role selects the motion rule applied to a vehicle
type Role string

const (
	// RoleColliding vehicles close laterally toward each other
	RoleColliding Role = "colliding"
	// RoleTrailing vehicles descend toward the brake line once alerted
	RoleTrailing Role = "trailing"
)
