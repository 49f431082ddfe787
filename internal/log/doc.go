// Package log provides the logger constructors used across doctor, built
// on top of the standard slog package.
//
// No diagnostic in this tool is fatal: parse failures
// drop a single document, I/O failures leave state empty or unchanged, and
// the run carries on. That makes consistent, levelled logging the only
// visibility into degraded runs, so every component takes a *slog.Logger
// and the CLI wires one of these constructors in.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
