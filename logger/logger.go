// Package logger wraps zap for application-level logging. The core
// packages trace through util.DPrintf; this logger covers lifecycle
// events (startup, snapshot save/load, shutdown) and shell errors.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global sugared logger, set by Init.
var Logger *zap.SugaredLogger

// Config controls the logger's verbosity and encoding.
type Config struct {
	Debug     bool   // enable debug level
	LogFormat string // "json" or "human"
	LogFile   string // optional file sink in addition to stderr
}

// Init builds the global logger. Safe to call again to reconfigure.
func Init(cfg Config) error {
	var zapConfig zap.Config
	if cfg.LogFormat == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	outputPaths := []string{"stderr"}
	if cfg.LogFile != "" {
		outputPaths = append(outputPaths, cfg.LogFile)
	}
	zapConfig.OutputPaths = outputPaths

	if cfg.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	l, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Logger = l.Sugar()
	return nil
}

// Sync flushes buffered log entries; call before exit.
func Sync() {
	if Logger != nil {
		Logger.Sync()
	}
}

func Info(msg string, kv ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, kv...)
	}
}

func Debug(msg string, kv ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, kv...)
	}
}

func Error(msg string, err error, kv ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, append(kv, "error", err)...)
	}
}
