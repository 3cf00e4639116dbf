// Package log provides structured protocol logging for the LifeSmart
// local UDP protocol.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, client).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/lifesmart/hub.llog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/lifesmart/hub.llog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw datagram bytes (DatagramEvent)
//   - Wire: Command/response round-trip summaries (ExchangeEvent)
//   - Client: Decoded state pushes (UpdateEvent) and lifecycle
//     transitions (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with .llog extension. The lifesmart-log CLI
// tool provides viewing, filtering, and statistics.
package log
