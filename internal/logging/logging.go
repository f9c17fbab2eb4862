// Package logging provides the process logger: a logs.Logger on stderr,
// leaving stdout to the MCP protocol, behind a level filter.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/cyclopcam/logs"
)

// ParseLevel accepts debug, info, warn, error or critical (case-insensitive).
// An empty string means info.
func ParseLevel(s string) (logs.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logs.LevelDebug, nil
	case "", "info":
		return logs.LevelInfo, nil
	case "warn", "warning":
		return logs.LevelWarn, nil
	case "error":
		return logs.LevelError, nil
	case "critical":
		return logs.LevelCritical, nil
	}
	return logs.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Filter drops messages below Min and passes the rest to Log.
type Filter struct {
	Log logs.Log
	Min logs.Level
}

var _ logs.Log = (*Filter)(nil)

// New returns a stderr logger that drops messages below level.
func New(level logs.Level) *Filter {
	return &Filter{Log: &logs.Logger{Output: os.Stderr}, Min: level}
}

func (f *Filter) Close() {
	f.Log.Close()
}

func (f *Filter) Debugf(format string, a ...interface{}) {
	if f.Min <= logs.LevelDebug {
		f.Log.Debugf(format, a...)
	}
}

func (f *Filter) Infof(format string, a ...interface{}) {
	if f.Min <= logs.LevelInfo {
		f.Log.Infof(format, a...)
	}
}

func (f *Filter) Warnf(format string, a ...interface{}) {
	if f.Min <= logs.LevelWarn {
		f.Log.Warnf(format, a...)
	}
}

func (f *Filter) Errorf(format string, a ...interface{}) {
	if f.Min <= logs.LevelError {
		f.Log.Errorf(format, a...)
	}
}

func (f *Filter) Criticalf(format string, a ...interface{}) {
	f.Log.Criticalf(format, a...)
}
