// Package monitoring carries the shared diagnostic logger used by the
// analysis packages. Fit and parameter-classification code reports
// recoverable conditions here instead of returning errors on hot paths.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests capture or mute it to assert on the
// diagnostics emitted by parameter-role lookups and fit fallbacks.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Capture redirects the package logger into the returned slice and hands back
// a restore function. Intended for tests that count diagnostics.
func Capture() (*[]string, func()) {
	prev := Logf
	var lines []string
	Logf = func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}
	return &lines, func() { Logf = prev }
}
