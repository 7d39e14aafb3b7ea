package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/openifx/ifxbridge/internal/cli"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(ifxbridge.ExitPanic)
		}
	}()

	if os.Getenv("IFXBRIDGE_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(ifxbridge.ExitCodeForError(err))
	}
}
