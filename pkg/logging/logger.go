// Package logging is the diagnostic logger shared by the stream layer and
// the command line tool.
package logging

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Level selects which messages reach Logf.
type Level int32

const (
	LevelQuiet Level = iota
	LevelInfo
	LevelDebug
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelQuiet:
		return "quiet"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("unknown(%d)", int32(l))
	}
}

// ParseLevel parses a level name as used in the config file.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet", "off", "none":
		return LevelQuiet, nil
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetLevel sets the threshold for Infof and Debugf.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// GetLevel returns the current threshold.
func GetLevel() Level {
	return Level(level.Load())
}

// Infof logs at info level.
func Infof(format string, v ...interface{}) {
	if GetLevel() >= LevelInfo {
		Logf(format, v...)
	}
}

// Debugf logs at debug level.
func Debugf(format string, v ...interface{}) {
	if GetLevel() >= LevelDebug {
		Logf(format, v...)
	}
}
