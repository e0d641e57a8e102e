// Package logger provides the gateway's process-wide structured logger,
// a thin wrapper over zap configured from the LOG_LEVEL environment
// variable and the transport in use. Stdio transport instances must
// force the sink to stderr, since stdout carries protocol traffic.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

// Initialize sets up the package-level logger. When forceStderr is
// true (stdio transport) output never goes to stdout regardless of
// configuration.
func Initialize(levelName string, forceStderr bool) {
	mu.Lock()
	defer mu.Unlock()

	level := parseLevel(levelName)
	sink := zapcore.Lock(os.Stdout)
	if forceStderr {
		sink = zapcore.Lock(os.Stderr)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewCore(encoder, sink, level)
	log = zap.New(core, zap.AddCaller()).Sugar()
}

func parseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ensure() *zap.SugaredLogger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	Initialize("info", false)
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs at debug level.
func Debug(args ...any) { ensure().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...any) { ensure().Debugf(template, args...) }

// Info logs at info level.
func Info(args ...any) { ensure().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(template string, args ...any) { ensure().Infof(template, args...) }

// Warn logs at warning level.
func Warn(args ...any) { ensure().Warn(args...) }

// Warnf logs a formatted message at warning level.
func Warnf(template string, args ...any) { ensure().Warnf(template, args...) }

// Error logs at error level.
func Error(args ...any) { ensure().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...any) { ensure().Errorf(template, args...) }

// With returns a child logger with the given structured key-value
// pairs attached to every subsequent entry.
func With(args ...any) *zap.SugaredLogger { return ensure().With(args...) }

// Sync flushes any buffered log entries.
func Sync() error { return ensure().Sync() }
