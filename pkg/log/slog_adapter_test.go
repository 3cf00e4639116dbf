package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

func TestSlogAdapterLogsDatagramEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		Datagram: &DatagramEvent{
			Size: 256,
			Data: []byte{0x4a, 0x4c},
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	// Parse JSON log entry
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	// Verify key fields
	if logEntry["conn_id"] != "conn-123" {
		t.Errorf("conn_id: got %v, want %q", logEntry["conn_id"], "conn-123")
	}
	if logEntry["direction"] != "IN" {
		t.Errorf("direction: got %v, want %q", logEntry["direction"], "IN")
	}
	if logEntry["layer"] != "TRANSPORT" {
		t.Errorf("layer: got %v, want %q", logEntry["layer"], "TRANSPORT")
	}
	if logEntry["datagram_size"] != float64(256) {
		t.Errorf("datagram_size: got %v, want %v", logEntry["datagram_size"], 256)
	}
}

func TestSlogAdapterLogsExchangeEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	code := 0
	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-456",
		Direction:    DirectionOut,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Exchange: &ExchangeEvent{
			Object:   "eps",
			Command:  wire.CommandQuery,
			Sequence: 42,
			Code:     &code,
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	// Parse JSON log entry
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	// Verify exchange fields
	if logEntry["seq"] != float64(42) {
		t.Errorf("seq: got %v, want %v", logEntry["seq"], 42)
	}
	if logEntry["object"] != "eps" {
		t.Errorf("object: got %v, want %q", logEntry["object"], "eps")
	}
	if logEntry["command"] != "QUERY" {
		t.Errorf("command: got %v, want %q", logEntry["command"], "QUERY")
	}
	if logEntry["code"] != float64(0) {
		t.Errorf("code: got %v, want %v", logEntry["code"], 0)
	}
}

func TestSlogAdapterIncludesConnectionID(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "abc12345-def6-7890",
		Direction:    DirectionIn,
		Layer:        LayerClient,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityListener,
			NewState: "listening",
		},
	})

	output := buf.String()
	if !strings.Contains(output, "abc12345-def6-7890") {
		t.Error("output does not contain connection ID")
	}
}

func TestSlogAdapterInterfaceSatisfaction(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
