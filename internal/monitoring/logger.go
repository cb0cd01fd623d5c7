package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute
// it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf is the elevated-severity logger used for conditions that threaten the
// active flight plan (in-flight collision, tick overruns). It shares the
// destination of Logf by default but carries a WARN prefix so downstream log
// filters can separate routine replans from safety events.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("WARN: "+format, v...)
}

// SetLogger replaces both package loggers. Passing nil will set no-op loggers.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		noop := func(string, ...interface{}) {}
		Logf = noop
		Warnf = noop
		return
	}
	Logf = f
	Warnf = func(format string, v ...interface{}) {
		f("WARN: "+format, v...)
	}
}
