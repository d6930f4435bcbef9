package roadsim

import "github.com/charmbracelet/log"

// LogSink writes events to a structured logger.
// It is a pure consumer: append-only, ordered, no simulation state.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink writing to the given logger
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify implements the Sink interface
func (s *LogSink) Notify(event Event) {
	switch event.Kind {
	case EventVehicleMoved:
		s.logger.Debug("vehicle moved",
			"vehicle", event.VehicleID, "x", event.X, "y", event.Y,
		)
	case EventStatusChanged:
		s.logger.Info("status changed",
			"vehicle", event.VehicleID, "status", event.Status,
		)
	case EventPhaseChanged:
		s.logger.Info("phase changed", "phase", event.PhaseName)
	case EventFaultRaised:
		s.logger.Error(event.Message, "phase", event.PhaseName, "err", event.Err)
	default:
		s.logger.Info(event.Message, "event", string(event.Kind))
	}
}
