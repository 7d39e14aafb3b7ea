// Package logging provides concrete implementations of the ifxbridge.Logger interface.
package logging

import (
	"fmt"
	"os"
	"sync"
)

// ConsoleLogger writes prefixed lines to stderr, keeping stdout free for
// command output. A mutex serializes writers so concurrent manager
// goroutines cannot interleave half-lines.
type ConsoleLogger struct {
	verbose bool
	mu      sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger. Verbose output is suppressed
// unless verbose is true.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{verbose: verbose}
}

// Verbose logs diagnostic detail, only when verbose mode is on.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.emit("[VERBOSE] ", format, args)
}

// Info logs normal operational messages.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.emit("", format, args)
}

// Error logs failures.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.emit("[ERROR] ", format, args)
}

// emit writes one line under the lock. With no args the format is printed
// verbatim, so callers can log pre-rendered strings containing % signs.
func (l *ConsoleLogger) emit(prefix, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
		return
	}
	fmt.Fprint(os.Stderr, prefix+format+"\n")
}
