// Package logging provides concrete implementations of the ifxbridge.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted messages to stderr with thread-safe output
//   - StructuredLogger: Routes messages through a logrus logger for aggregation
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
