// Package monitoring holds the process-wide diagnostic logger shared by the
// session, bridge link and simulator.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf receives per-line traffic (every bridge line, every telemetry
// frame). It is muted unless SetDebug(true) is called.
var Debugf func(format string, v ...interface{}) = noop

func noop(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
// When debug output is enabled it follows the new logger.
func SetLogger(f func(format string, v ...interface{})) {
	debugOn := debugEnabled
	if f == nil {
		Logf = noop
	} else {
		Logf = f
	}
	SetDebug(debugOn)
}

var debugEnabled bool

// SetDebug routes Debugf to Logf when enabled and mutes it otherwise.
func SetDebug(enabled bool) {
	debugEnabled = enabled
	if !enabled {
		Debugf = noop
		return
	}
	Debugf = func(format string, v ...interface{}) { Logf(format, v...) }
}
