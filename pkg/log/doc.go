// Package log provides protocol event capture for remote sessions.
//
// This package defines the Logger interface and Event types for recording
// what happens on a connection at three layers (transport, protocol,
// session). It is separate from operational logging (slog): protocol
// capture is a machine-readable trace for debugging pairing and
// keepalive problems after the fact.
//
// # Basic Usage
//
//	// Console output during development
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/gtv/livingroom.glog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Log files are a stream of CBOR encoded events with a .glog extension.
// The gtv-remote log command views and summarises them.
package log
