// Package log provides structured logging with agent context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the control loop and engine (structured fields)
//   - SugaredLogger: Printf-style logging for CLI surfaces
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/outpost/types"
)

// Logger provides structured logging with agent context.
// All entries carry agent_id and agent_class when known.
type Logger struct {
	zap  *zap.Logger
	meta *types.AgentMeta
	name string
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger with agent context at info level.
// Output defaults to os.Stderr.
func NewLogger(meta *types.AgentMeta) *Logger {
	return newLoggerWithWriter(meta, os.Stderr, zapcore.InfoLevel)
}

// NewLoggerWithLevel creates a logger with agent context at the named level
// (debug, info, warn, error). An empty level means info.
func NewLoggerWithLevel(meta *types.AgentMeta, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return newLoggerWithWriter(meta, os.Stderr, lvl), nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		NameKey:     "component",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

// WithOutput returns a new logger writing to w at debug level.
// Context fields and the component name are preserved.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	out := newLoggerWithWriter(l.meta, w, zapcore.DebugLevel)
	if l.name != "" {
		return out.Named(l.name)
	}
	return out
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{zap: l.zap.Named(component), meta: l.meta, name: component}
}

func newLoggerWithWriter(meta *types.AgentMeta, w io.Writer, level zapcore.Level) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		level,
	)

	var contextFields []zap.Field
	if meta != nil {
		if meta.AgentID != "" {
			contextFields = append(contextFields, zap.String("agent_id", meta.AgentID))
		}
		if meta.AgentClass != "" {
			contextFields = append(contextFields, zap.String("agent_class", meta.AgentClass))
		}
	}

	return &Logger{zap: zap.New(core).With(contextFields...), meta: meta}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
//
//	defer iox.DiscardErr(logger.Sync)
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}
