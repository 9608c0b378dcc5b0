// Package logger is the process-wide leveled logger. Packages log
// through the printf-style functions below; Init wires the destination
// once at startup, and before Init (or with logging disabled) every
// call is a no-op, which keeps tests quiet.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level orders log severities, least to most severe.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a config string to a Level. Unrecognized values fall
// back to Info so a typo in sentinel.yml never silences the log.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

type sink struct {
	min Level
	out *log.Logger
}

var active *sink

// Init routes log output to the configured file, the console, or both.
// With enabled false the logger stays inert and all calls drop.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		active = nil
		return nil
	}

	var writers []io.Writer
	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
	}
	if console || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	active = &sink{
		min: ParseLevel(levelStr),
		out: log.New(io.MultiWriter(writers...), "", 0),
	}
	return nil
}

func logf(l Level, format string, args ...interface{}) {
	s := active
	if s == nil || l < s.min {
		return
	}
	s.out.Printf("%s %-5s %s",
		time.Now().Format("2006-01-02 15:04:05"), l, fmt.Sprintf(format, args...))
}

// Debugf logs at Debug level.
func Debugf(format string, args ...interface{}) { logf(Debug, format, args...) }

// Infof logs at Info level.
func Infof(format string, args ...interface{}) { logf(Info, format, args...) }

// Warnf logs at Warn level.
func Warnf(format string, args ...interface{}) { logf(Warn, format, args...) }

// Errorf logs at Error level.
func Errorf(format string, args ...interface{}) { logf(Error, format, args...) }
