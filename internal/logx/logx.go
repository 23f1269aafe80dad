// Package logx provides structured logging functionality
package logx

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger to provide a consistent interface
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

func init() {
	l, err := New()
	if err != nil {
		panic(err)
	}
	globalLogger = l
}

// IsLocalDev checks if the environment is local development
func IsLocalDev(appEnv string) bool {
	return appEnv == "local" || appEnv == "dev" || appEnv == "development"
}

// New creates a logger with the level derived from APP_ENV.
func New() (*Logger, error) {
	config := getLoggerConfig()
	if IsLocalDev(os.Getenv("APP_ENV")) {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return wrap(zapLogger), nil
}

func wrap(z *zap.Logger) *Logger {
	return &Logger{zap: z, sugar: z.Sugar()}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func getLoggerConfig() zap.Config {
	config := zap.NewProductionConfig()
	config.Development = false
	config.Sampling = nil
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.Encoding = "console"
	return config
}

// Init reconfigures the global logger. Scoped loggers pick up the change on their next call.
func Init(level, format string) {
	config := getLoggerConfig()
	switch strings.ToLower(format) {
	case "json":
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	default:
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zapLogger, err := config.Build()
	if err != nil {
		panic(err)
	}
	mu.Lock()
	old := globalLogger
	globalLogger = wrap(zapLogger)
	mu.Unlock()
	if old != nil {
		_ = old.zap.Sync()
	}
}

// Global returns the global logger instance
func Global() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// L returns the global sugar logger
func L() *zap.SugaredLogger {
	return Global().sugar
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Scope is a named logger bound to whatever global logger is current.
// Package-level scopes are declared before Init runs, so resolution is lazy.
type Scope struct {
	name string
}

// GetScope returns a named logger scope, e.g. logx.GetScope("db").
func GetScope(name string) *Scope {
	return &Scope{name: name}
}

// Zap returns the named zap logger for the current global configuration.
func (s *Scope) Zap() *zap.Logger {
	return Global().zap.Named(s.name)
}

// Sugar returns the named sugared logger.
func (s *Scope) Sugar() *zap.SugaredLogger {
	return s.Zap().Sugar()
}

func (s *Scope) Debug(msg string, fields ...zap.Field) { s.Zap().Debug(msg, fields...) }
func (s *Scope) Info(msg string, fields ...zap.Field)  { s.Zap().Info(msg, fields...) }
func (s *Scope) Warn(msg string, fields ...zap.Field)  { s.Zap().Warn(msg, fields...) }
func (s *Scope) Error(msg string, fields ...zap.Field) { s.Zap().Error(msg, fields...) }

// Sugar returns the sugar logger for key-value style logging
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Close flushes any buffered log entries
func (l *Logger) Close() error {
	return l.zap.Sync()
}
