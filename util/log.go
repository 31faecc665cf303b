package util

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu  sync.Mutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger *zap.SugaredLogger
)

// Logger returns the process wide logger. It writes human readable lines to stderr
// so that stdout stays free for command output.
func Logger() *zap.SugaredLogger {
	logMu.Lock()
	defer logMu.Unlock()

	if logger != nil {
		return logger
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	logger = zap.New(core).Sugar()
	return logger
}

// SetVerbose switches the logger between info and debug level.
func SetVerbose(verbose bool) {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Sync flushes the logger if it was ever used.
func Sync() {
	logMu.Lock()
	defer logMu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
