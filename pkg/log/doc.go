// Package log provides structured logging for ledger components.
//
// Loggers are constructed once and passed explicitly; there is no global
// default. The Field-based API keeps call sites allocation-light:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	logger = logger.With(log.Component("eventlog"))
//	logger.Info("event appended", log.Uint64("seq", seq), log.Str("type", typ))
//
// Output format is pluggable (text for terminals, JSON for collectors).
// RedirectStdLog routes standard-library log output (used by Pebble)
// through a Logger so every line shares one pipeline.
package log
