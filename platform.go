package roadsim

import "fmt"

// Platform is the four-method contract through which the simulation reaches
// the external cloud services. Implementations stand in for real networked
// clients; the phase machine never depends on anything beyond this surface.
type Platform interface {
	// ReportAccident files the accident with the mapping service and
	// returns a confirmation text
	ReportAccident(location string) string

	// Publish broadcasts a message to nearby vehicles and returns a
	// confirmation text
	Publish(message string) string

	// Send uploads a vehicle's telemetry payload and returns a
	// confirmation text
	Send(vehicleID int, payload string) string

	// DetectCollision runs the vision-based crash detection predicate
	DetectCollision() bool
}

// StubPlatform is the default side-effect-free platform used by the
// scripted scenario. Detection always succeeds.
type StubPlatform struct{}

// ReportAccident implements the Platform interface
func (StubPlatform) ReportAccident(location string) string {
	return fmt.Sprintf("Accident reported at %s via maps platform", location)
}

// Publish implements the Platform interface
func (StubPlatform) Publish(message string) string {
	return fmt.Sprintf("Broadcasting: %s", message)
}

// Send implements the Platform interface
func (StubPlatform) Send(vehicleID int, payload string) string {
	return fmt.Sprintf("Vehicle %d sent data to cloud", vehicleID)
}

// DetectCollision implements the Platform interface
func (StubPlatform) DetectCollision() bool {
	return true
}
