package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
)

// logTimeFormat names the per-run log directory.
const logTimeFormat = "2006-01-02-T15-04-05"

// ParseLevel maps a config level name onto a logrus level.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "", "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.WarnLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// NewLogger creates the text logger writing to out at the given level.
func NewLogger(out io.Writer, level log.Level) *log.Logger {
	logger := &log.Logger{
		Out:       out,
		Formatter: &log.TextFormatter{FullTimestamp: true},
		Hooks:     make(log.LevelHooks),
		Level:     level,
	}
	return logger
}

// AddFileLogger adds per-level log files under dir/<timestamp>/ and returns
// the directory used.
func AddFileLogger(logger *log.Logger, dir string, now time.Time) (string, error) {
	logPath := filepath.Join(dir, now.Format(logTimeFormat))
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	logger.Hooks.Add(lfshook.NewHook(lfshook.PathMap{
		log.DebugLevel: filepath.Join(logPath, "debug.log"),
		log.InfoLevel:  filepath.Join(logPath, "info.log"),
		log.WarnLevel:  filepath.Join(logPath, "warn.log"),
		log.ErrorLevel: filepath.Join(logPath, "error.log"),
		log.FatalLevel: filepath.Join(logPath, "fatal.log"),
		log.PanicLevel: filepath.Join(logPath, "panic.log"),
	}, &log.JSONFormatter{}))
	return logPath, nil
}
