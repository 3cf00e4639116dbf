package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	// Should not panic with any event type
	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "test-conn",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
	}

	// Test with nil payloads
	logger.Log(event)

	// Test with datagram payload
	event.Datagram = &DatagramEvent{Size: 100, Data: []byte{1, 2, 3}}
	logger.Log(event)

	// Test with exchange payload
	event.Datagram = nil
	event.Exchange = &ExchangeEvent{Object: "eps", Sequence: 1}
	logger.Log(event)

	// Test with update payload
	event.Exchange = nil
	event.Update = &UpdateEvent{Me: "2d02", Idx: "L1"}
	logger.Log(event)

	// Test with state change payload
	event.Update = nil
	event.StateChange = &StateChangeEvent{Entity: StateEntityPool, NewState: "closed"}
	logger.Log(event)

	// Test with error payload
	event.StateChange = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestLoggerInterfaceSatisfaction(t *testing.T) {
	// Compile-time check that NoopLogger satisfies Logger interface
	var _ Logger = NoopLogger{}
	var _ Logger = &NoopLogger{}
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	// NoopLogger should be usable as zero value
	var logger NoopLogger
	logger.Log(Event{})
}
