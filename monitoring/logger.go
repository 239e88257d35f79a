// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitoring carries the process-wide diagnostic loggers.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf but may be replaced by SetLogger. Tests or production
// code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var debugEnabled bool

// EnableDebug switches the debug channel. It is off by default and
// nothing in the system may depend on its output; the sensor layer
// uses it to surface transport faults that are otherwise swallowed.
func EnableDebug(on bool) {
	debugEnabled = on
}

// Debugf logs through Logf when the debug channel is enabled.
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		Logf("debug: "+format, v...)
	}
}
