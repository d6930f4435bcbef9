package roadsim

import "sync"

// Sink receives discrete events emitted by the simulation core.
// Notify must never fail the caller: it returns nothing, and a panicking
// sink is isolated rather than propagated. Notify is invoked from the
// simulation goroutine in emission order, so implementations must not
// block for long and must not reach back into the simulation.
type Sink interface {
	Notify(event Event)
}

// SinkFunc adapts a plain function to the Sink interface
type SinkFunc func(event Event)

// Notify implements the Sink interface
func (f SinkFunc) Notify(event Event) {
	f(event)
}

// SinkManager fans events out to a collection of sinks
type SinkManager struct {
	mutex sync.RWMutex
	sinks []Sink
}

// NewSinkManager creates a new sink manager
func NewSinkManager() *SinkManager {
	return &SinkManager{
		sinks: make([]Sink, 0),
	}
}

// AddSink adds a sink to the manager
func (sm *SinkManager) AddSink(sink Sink) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.sinks = append(sm.sinks, sink)
}

// RemoveSink removes a sink from the manager
func (sm *SinkManager) RemoveSink(sink Sink) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	for i, s := range sm.sinks {
		if s == sink {
			sm.sinks = append(sm.sinks[:i], sm.sinks[i+1:]...)
			break
		}
	}
}

// Notify delivers the event to every registered sink in registration order.
// Delivery failures are isolated per sink; a panicking sink never aborts
// the simulation or starves the remaining sinks.
func (sm *SinkManager) Notify(event Event) {
	sm.mutex.RLock()
	sinks := make([]Sink, len(sm.sinks))
	copy(sinks, sm.sinks)
	sm.mutex.RUnlock()

	for _, sink := range sinks {
		func() {
			defer func() {
				recover()
			}()
			sink.Notify(event)
		}()
	}
}

// QueueSink buffers events for consumption from another goroutine.
// The simulation goroutine produces via Notify; a single consumer drains
// with Drain. When the buffer is full the oldest events are dropped.
type QueueSink struct {
	mutex  sync.Mutex
	events []Event
	limit  int
}

// NewQueueSink creates a queue sink holding at most limit events
func NewQueueSink(limit int) *QueueSink {
	if limit <= 0 {
		limit = 256
	}
	return &QueueSink{
		events: make([]Event, 0, limit),
		limit:  limit,
	}
}

// Notify implements the Sink interface
func (q *QueueSink) Notify(event Event) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.events) == q.limit {
		copy(q.events, q.events[1:])
		q.events = q.events[:q.limit-1]
	}
	q.events = append(q.events, event)
}

// Drain returns all pending events in emission order and empties the queue
func (q *QueueSink) Drain() []Event {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := make([]Event, len(q.events))
	copy(out, q.events)
	q.events = q.events[:0]
	return out
}

// Len returns the number of pending events
func (q *QueueSink) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.events)
}
