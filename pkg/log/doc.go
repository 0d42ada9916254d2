// Package log provides structured protocol logging for the sensor
// gateway.
//
// This package defines the Logger interface and Event types for
// capturing link and channel events at multiple layers (transport,
// gatt, session). It is separate from operational logging (slog) -
// protocol capture provides a complete machine-readable event trace
// for debugging and analysis, including the observability-only records
// the dispatcher keeps for battery and identification values.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	logger, _ := log.NewFileLogger("/var/log/vitalink/gateway.vlog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files use CBOR encoding with .vlog extension. The Reader type
// provides streaming, filtered replay of captured traces.
package log
