package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}

	// Add type-specific attributes
	switch {
	case event.Datagram != nil:
		attrs = append(attrs,
			slog.Int("datagram_size", event.Datagram.Size),
			slog.Bool("truncated", event.Datagram.Truncated),
		)
	case event.Exchange != nil:
		attrs = append(attrs,
			slog.String("object", event.Exchange.Object),
			slog.String("command", event.Exchange.Command.String()),
			slog.Uint64("seq", uint64(event.Exchange.Sequence)),
		)
		if event.Exchange.Code != nil {
			attrs = append(attrs, slog.Int("code", *event.Exchange.Code))
		}
		if event.Exchange.Attempt > 0 {
			attrs = append(attrs, slog.Int("attempt", event.Exchange.Attempt))
		}
		if event.Exchange.RTT != nil {
			attrs = append(attrs, slog.Duration("rtt", *event.Exchange.RTT))
		}
	case event.Update != nil:
		attrs = append(attrs,
			slog.String("me", event.Update.Me),
			slog.String("idx", event.Update.Idx),
			slog.Int("value_type", event.Update.ValueType),
			slog.Float64("value", event.Update.Value),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
