// Package logger provides a zap-backed structured logger shared by every
// component of the engine.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the seam every package depends on instead of *zap.Logger
// directly, so tests can stub it out with a no-op implementation.
type Logger interface {
	Info(format string, v ...any)
	Error(format string, v ...any)
	Warn(format string, v ...any)
	Debug(format string, v ...any)
	Close()
}

// CustomLogger wraps zap with two rotating file cores and a console core.
type CustomLogger struct {
	logger    *zap.Logger
	sugar     *zap.SugaredLogger
	debugMode bool
	logDir    string
	atom      zap.AtomicLevel
}

// New creates a logger rooted at <dataDir>/logs. The log file names carry
// the date New was called; lumberjack rotates them by size and age.
func New(debugMode bool, dataDir string) (*CustomLogger, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logFilePath := filepath.Join(logDir, fmt.Sprintf("engine_%s.log", time.Now().Format("2006-01-02")))
	debugFilePath := filepath.Join(logDir, fmt.Sprintf("debug_%s.log", time.Now().Format("2006-01-02")))

	appLogRotate := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // MB
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}

	debugLogRotate := &lumberjack.Logger{
		Filename:   debugFilePath,
		MaxSize:    10,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   true,
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleEncoderConfig := encoderConfig
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	atom := zap.NewAtomicLevel()
	if debugMode {
		atom.SetLevel(zapcore.DebugLevel)
	} else {
		atom.SetLevel(zapcore.InfoLevel)
	}

	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	appCore := zapcore.NewCore(
		fileEncoder,
		zapcore.AddSync(appLogRotate),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.InfoLevel
		}),
	)

	debugCore := zapcore.NewCore(
		fileEncoder,
		zapcore.AddSync(debugLogRotate),
		atom,
	)

	consoleCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stdout),
		atom,
	)

	core := zapcore.NewTee(appCore, debugCore, consoleCore)

	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugar := zl.Sugar()

	return &CustomLogger{
		logger:    zl,
		sugar:     sugar,
		debugMode: debugMode,
		logDir:    logDir,
		atom:      atom,
	}, nil
}

func (l *CustomLogger) Info(format string, v ...any)  { l.sugar.Infof(format, v...) }
func (l *CustomLogger) Error(format string, v ...any) { l.sugar.Errorf(format, v...) }
func (l *CustomLogger) Debug(format string, v ...any) { l.sugar.Debugf(format, v...) }
func (l *CustomLogger) Warn(format string, v ...any)  { l.sugar.Warnf(format, v...) }

// Close flushes buffered log entries.
func (l *CustomLogger) Close() {
	if l.logger != nil {
		_ = l.logger.Sync()
	}
}

// CleanOldLogs removes rotated log files older than 7 days.
func (l *CustomLogger) CleanOldLogs() {
	files, err := os.ReadDir(l.logDir)
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".log") || strings.HasSuffix(file.Name(), ".log.gz") {
			info, err := file.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				os.Remove(filepath.Join(l.logDir, file.Name()))
			}
		}
	}
}

// SetDebugMode flips the atomic level without restarting the logger.
func (l *CustomLogger) SetDebugMode(enabled bool) {
	l.debugMode = enabled
	if enabled {
		l.atom.SetLevel(zapcore.DebugLevel)
	} else {
		l.atom.SetLevel(zapcore.InfoLevel)
	}
}

func (l *CustomLogger) GetLogDir() string { return l.logDir }
func (l *CustomLogger) GetDebugMode() bool { return l.debugMode }

// NopLogger discards everything; useful in tests.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Close()               {}
