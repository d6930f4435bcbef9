package roadsim

import "fmt"

// ErrorCode represents specific error conditions in the simulation
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Collision detection predicate kept returning false
	ErrCodeDetectionFailed
	// A condition-gated phase failed to complete within its upper bound
	ErrCodeTransitionTimeout
	// Scenario configuration is invalid
	ErrCodeInvalidConfiguration
	// A simulation invariant was violated
	ErrCodeInvariantViolation
	// Operation attempted against a stopped or finished simulation
	ErrCodeInvalidState
)

// TransitionError represents phase transition failures
type TransitionError struct {
	Code   ErrorCode
	From   Phase
	To     Phase
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition error [%s->%s]: %s", e.From, e.To, e.Reason)
}

// NewTransitionTimeoutError creates an error for a phase that outlived its bound
func NewTransitionTimeoutError(from, to Phase, reason string) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeTransitionTimeout,
		From:   from,
		To:     to,
		Reason: reason,
	}
}

// DetectionError represents a failed collision detection predicate
type DetectionError struct {
	Attempts int
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("collision detection failed after %d attempts", e.Attempts)
}

// NewDetectionError creates an error for exhausted detection retries
func NewDetectionError(attempts int) *DetectionError {
	return &DetectionError{Attempts: attempts}
}

// ConfigurationError represents invalid scenario configuration
type ConfigurationError struct {
	Field string
	Issue string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, issue string) *ConfigurationError {
	return &ConfigurationError{Field: field, Issue: issue}
}

// InvariantError represents a violated simulation invariant
type InvariantError struct {
	VehicleID int
	Detail    string
}

func (e *InvariantError) Error() string {
	if e.VehicleID != 0 {
		return fmt.Sprintf("invariant violation [vehicle %d]: %s", e.VehicleID, e.Detail)
	}
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

// NewInvariantError creates a new invariant violation error
func NewInvariantError(vehicleID int, detail string) *InvariantError {
	return &InvariantError{VehicleID: vehicleID, Detail: detail}
}

// SimulationError represents lifecycle operation errors
type SimulationError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation error during %s: %s", e.Operation, e.Message)
}

// NewSimulationError creates a new simulation lifecycle error
func NewSimulationError(code ErrorCode, operation, message string) *SimulationError {
	return &SimulationError{Code: code, Operation: operation, Message: message}
}

// IsTransitionError checks if an error is a TransitionError
func IsTransitionError(err error) bool {
	_, ok := err.(*TransitionError)
	return ok
}

// IsDetectionError checks if an error is a DetectionError
func IsDetectionError(err error) bool {
	_, ok := err.(*DetectionError)
	return ok
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// IsInvariantError checks if an error is an InvariantError
func IsInvariantError(err error) bool {
	_, ok := err.(*InvariantError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *TransitionError:
		return e.Code
	case *DetectionError:
		return ErrCodeDetectionFailed
	case *ConfigurationError:
		return ErrCodeInvalidConfiguration
	case *InvariantError:
		return ErrCodeInvariantViolation
	case *SimulationError:
		return e.Code
	default:
		return ErrCodeNone
	}
}
