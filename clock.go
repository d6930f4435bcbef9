package roadsim

import "time"

// Clock abstracts the inter-tick wait of the simulation loop so tests can
// run the scenario without real sleeping
type Clock interface {
	// After returns a channel that fires once the duration has elapsed
	After(d time.Duration) <-chan time.Time
}

// wallClock is the default Clock backed by real time
type wallClock struct{}

func (wallClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Start launches the tick loop on its own goroutine. The loop waits the
// active phase's interval between ticks and exits when the simulation
// reaches a terminal phase or Stop is called.
func (s *Simulation) Start() error {
	s.mutex.Lock()
	if s.started {
		s.mutex.Unlock()
		return NewSimulationError(ErrCodeInvalidState, "Start", "simulation is already started")
	}
	s.started = true
	s.mutex.Unlock()

	go s.run()
	return nil
}

// Stop requests termination of the tick loop and waits for it to exit.
// The stop signal is checked between ticks, so no partial tick and no
// duplicate terminal events can be produced.
func (s *Simulation) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.mutex.RLock()
	started := s.started
	s.mutex.RUnlock()
	if started {
		<-s.done
	}
}

// Done returns a channel closed when the tick loop has exited
func (s *Simulation) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the run finishes and returns the fault error, if any.
// Waiting on a simulation that was never started is an error, not a hang.
func (s *Simulation) Wait() error {
	s.mutex.RLock()
	started := s.started
	s.mutex.RUnlock()
	if !started {
		return NewSimulationError(ErrCodeInvalidState, "Wait", "simulation was never started")
	}
	<-s.done
	return s.Err()
}

// run is the dedicated simulation loop: wait one phase interval, advance
// one tick, repeat until terminal or stopped
func (s *Simulation) run() {
	defer close(s.done)

	for {
		s.mutex.RLock()
		phase := s.phase
		s.mutex.RUnlock()
		if phase.Terminal() {
			return
		}

		select {
		case <-s.clock.After(s.scenario.Interval(phase)):
		case <-s.stopChan:
			return
		}

		select {
		case <-s.stopChan:
			return
		default:
		}

		if err := s.Step(); err != nil {
			return
		}
	}
}
