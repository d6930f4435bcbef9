package roadsim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so scenario files can use "50ms" / "5s" forms
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// VehicleConfig describes one vehicle's starting position and role
type VehicleConfig struct {
	ID    int    `yaml:"id"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Color string `yaml:"color"`
	Role  Role   `yaml:"role"`
}

// Scenario parameterizes a scripted run. The zero value is not usable;
// start from DefaultScenario or load a file and let missing fields fall
// back to the defaults.
type Scenario struct {
	// Window bounds every vehicle position must stay within
	WindowW int `yaml:"window_w"`
	WindowH int `yaml:"window_h"`

	// BrakeY minus BrakeMargin is the line the trailing pair descends to
	BrakeY      int `yaml:"brake_y"`
	BrakeMargin int `yaml:"brake_margin"`

	// Step is the per-tick displacement for both motion rules
	Step int `yaml:"step"`

	// ApproachTicks is how many ticks the colliding pair closes for
	ApproachTicks int `yaml:"approach_ticks"`

	ApproachInterval Duration `yaml:"approach_interval"`
	DescentInterval  Duration `yaml:"descent_interval"`
	IdleInterval     Duration `yaml:"idle_interval"`

	// AlertDelay gates Reporting -> Alerting, BrakeDelay gates Braking -> Halted
	AlertDelay Duration `yaml:"alert_delay"`
	BrakeDelay Duration `yaml:"brake_delay"`

	// DetectionRetries bounds the collision predicate attempts before Fault
	DetectionRetries int `yaml:"detection_retries"`

	// PhaseTimeout is the generous upper bound on condition-gated phases
	PhaseTimeout Duration `yaml:"phase_timeout"`

	// Location is the accident location passed to the maps platform
	Location string `yaml:"location"`

	Vehicles []VehicleConfig `yaml:"vehicles"`
}

// DefaultScenario returns the fixed four-vehicle topology: two cars closing
// on the accident zone and two trailing cars descending toward it.
func DefaultScenario() Scenario {
	return Scenario{
		WindowW:          1000,
		WindowH:          650,
		BrakeY:           200,
		BrakeMargin:      30,
		Step:             2,
		ApproachTicks:    18,
		ApproachInterval: Duration(50 * time.Millisecond),
		DescentInterval:  Duration(30 * time.Millisecond),
		IdleInterval:     Duration(50 * time.Millisecond),
		AlertDelay:       Duration(5 * time.Second),
		BrakeDelay:       Duration(5 * time.Second),
		DetectionRetries: 3,
		PhaseTimeout:     Duration(60 * time.Second),
		Location:         "Highway Section A",
		Vehicles: []VehicleConfig{
			{ID: 1, X: 410, Y: 360, Color: "red", Role: RoleColliding},
			{ID: 2, X: 590, Y: 360, Color: "red", Role: RoleColliding},
			{ID: 3, X: 420, Y: 60, Color: "orange", Role: RoleTrailing},
			{ID: 4, X: 550, Y: 60, Color: "orange", Role: RoleTrailing},
		},
	}
}

// BrakeLine returns the Y coordinate the trailing pair descends to
func (s Scenario) BrakeLine() int {
	return s.BrakeY - s.BrakeMargin
}

// Interval returns the tick interval used while the given phase is active
func (s Scenario) Interval(p Phase) time.Duration {
	switch p {
	case PhaseApproaching:
		return time.Duration(s.ApproachInterval)
	case PhaseAlerting:
		return time.Duration(s.DescentInterval)
	default:
		return time.Duration(s.IdleInterval)
	}
}

// Validate checks the scenario for configuration errors
func (s Scenario) Validate() error {
	if s.Step <= 0 {
		return NewConfigurationError("step", "must be positive")
	}
	if s.ApproachTicks <= 0 {
		return NewConfigurationError("approach_ticks", "must be positive")
	}
	if s.ApproachInterval <= 0 || s.DescentInterval <= 0 || s.IdleInterval <= 0 {
		return NewConfigurationError("intervals", "must be positive")
	}
	if s.AlertDelay < 0 || s.BrakeDelay < 0 {
		return NewConfigurationError("delays", "must not be negative")
	}
	if s.DetectionRetries < 1 {
		return NewConfigurationError("detection_retries", "must be at least 1")
	}
	if s.PhaseTimeout <= 0 {
		return NewConfigurationError("phase_timeout", "must be positive")
	}
	if s.BrakeLine() <= 0 {
		return NewConfigurationError("brake_y", "brake line must be below the window top")
	}

	seen := make(map[int]bool)
	colliding := 0
	trailing := 0
	for _, vc := range s.Vehicles {
		if vc.ID <= 0 {
			return NewConfigurationError("vehicles", "vehicle id must be positive")
		}
		if seen[vc.ID] {
			return NewConfigurationError("vehicles", fmt.Sprintf("duplicate vehicle id %d", vc.ID))
		}
		seen[vc.ID] = true

		if vc.X < 0 || vc.X > s.WindowW || vc.Y < 0 || vc.Y > s.WindowH {
			return NewConfigurationError("vehicles",
				fmt.Sprintf("vehicle %d starts outside the window", vc.ID))
		}

		switch vc.Role {
		case RoleColliding:
			colliding++
		case RoleTrailing:
			trailing++
			if vc.Y >= s.BrakeLine() {
				return NewConfigurationError("vehicles",
					fmt.Sprintf("trailing vehicle %d starts at or past the brake line", vc.ID))
			}
		default:
			return NewConfigurationError("vehicles",
				fmt.Sprintf("vehicle %d has unknown role %q", vc.ID, vc.Role))
		}
	}
	if colliding != 2 {
		return NewConfigurationError("vehicles", "exactly two colliding vehicles required")
	}
	if trailing < 1 {
		return NewConfigurationError("vehicles", "at least one trailing vehicle required")
	}
	return nil
}

// applyDefaults fills unset scalar fields from the default scenario
func (s *Scenario) applyDefaults() {
	def := DefaultScenario()
	if s.WindowW == 0 {
		s.WindowW = def.WindowW
	}
	if s.WindowH == 0 {
		s.WindowH = def.WindowH
	}
	if s.BrakeY == 0 {
		s.BrakeY = def.BrakeY
	}
	if s.BrakeMargin == 0 {
		s.BrakeMargin = def.BrakeMargin
	}
	if s.Step == 0 {
		s.Step = def.Step
	}
	if s.ApproachTicks == 0 {
		s.ApproachTicks = def.ApproachTicks
	}
	if s.ApproachInterval == 0 {
		s.ApproachInterval = def.ApproachInterval
	}
	if s.DescentInterval == 0 {
		s.DescentInterval = def.DescentInterval
	}
	if s.IdleInterval == 0 {
		s.IdleInterval = def.IdleInterval
	}
	if s.AlertDelay == 0 {
		s.AlertDelay = def.AlertDelay
	}
	if s.BrakeDelay == 0 {
		s.BrakeDelay = def.BrakeDelay
	}
	if s.DetectionRetries == 0 {
		s.DetectionRetries = def.DetectionRetries
	}
	if s.PhaseTimeout == 0 {
		s.PhaseTimeout = def.PhaseTimeout
	}
	if s.Location == "" {
		s.Location = def.Location
	}
	if len(s.Vehicles) == 0 {
		s.Vehicles = def.Vehicles
	}
}

// ParseScenario decodes a YAML scenario, fills defaults and validates
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// LoadScenario reads and parses a YAML scenario file
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}
