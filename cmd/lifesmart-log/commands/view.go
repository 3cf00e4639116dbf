// Package commands implements the lifesmart-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if filter.Layer != nil && event.Layer != *filter.Layer {
			continue
		}
		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Datagram != nil:
		typeLabel = "Datagram"
	case event.Exchange != nil:
		typeLabel = event.Exchange.Command.String()
	case event.Update != nil:
		typeLabel = "Update"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, connID, dir, event.Layer.String(), typeLabel)

	switch {
	case event.Datagram != nil:
		formatDatagramDetails(w, event.Datagram)
	case event.Exchange != nil:
		formatExchangeDetails(w, event)
	case event.Update != nil:
		formatUpdateDetails(w, event.Update)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatDatagramDetails writes datagram-specific details.
func formatDatagramDetails(w io.Writer, dg *log.DatagramEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", dg.Size)
	if len(dg.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(dg.Data))
		if dg.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatExchangeDetails writes exchange-specific details.
func formatExchangeDetails(w io.Writer, event log.Event) {
	ex := event.Exchange
	fmt.Fprintf(w, "  Object: %s  Seq: %d\n", ex.Object, ex.Sequence)
	if event.DeviceID != "" {
		fmt.Fprintf(w, "  Device: %s\n", event.DeviceID)
	}
	if ex.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *ex.Code)
	} else {
		fmt.Fprintln(w, "  Code: (no response)")
	}
	if ex.Attempt > 1 {
		fmt.Fprintf(w, "  Attempt: %d\n", ex.Attempt)
	}
	if ex.RTT != nil {
		fmt.Fprintf(w, "  RTT: %s\n", formatDuration(*ex.RTT))
	}
}

// formatUpdateDetails writes state-push details.
func formatUpdateDetails(w io.Writer, u *log.UpdateEvent) {
	fmt.Fprintf(w, "  Device: %s  Idx: %s\n", u.Me, u.Idx)
	fmt.Fprintf(w, "  Type: 0x%02x  Value: %v\n", u.ValueType, u.Value)
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// filterEvents returns events matching the filter criteria.
func filterEvents(events []log.Event, filter ViewFilter) []log.Event {
	var result []log.Event
	for _, e := range events {
		if filter.Layer != nil && e.Layer != *filter.Layer {
			continue
		}
		if filter.Direction != nil && e.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		result = append(result, e)
	}
	return result
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "client":
		return log.LayerClient, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or client)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}
