// Package logger provides the application-wide file logger.
//
// The terminal host owns stdout, so log output always goes to a file. Until
// Init is called (or when the path is empty) every call is a no-op.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is the minimum severity that gets written.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

var (
	mu      sync.RWMutex
	sugar   = zap.NewNop().Sugar()
	logFile *os.File
)

// ParseLevel converts a config string to a LogLevel. Unknown values map to warning.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelWarning
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// Init opens path for appending and installs a logger at the given level.
func Init(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()
	return initLocked(path, level)
}

// Reinit closes the current log file and opens a new one.
func Reinit(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	return initLocked(path, level)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func initLocked(path string, level LogLevel) error {
	if path == "" {
		sugar = zap.NewNop().Sugar()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(f),
		level.zapLevel(),
	)

	logFile = f
	sugar = zap.New(core).Sugar()
	return nil
}

func closeLocked() {
	_ = sugar.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	sugar = zap.NewNop().Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warning logs a formatted message at warning level.
func Warning(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// ErrorWithErr logs a formatted message at error level with err attached.
func ErrorWithErr(err error, format string, args ...interface{}) {
	current().Errorw(fmt.Sprintf(format, args...), "error", err)
}
