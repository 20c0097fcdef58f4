package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// traceLevel sits one step below zap's debug level
	traceLevel = zapcore.DebugLevel - 1

	moduleKey  = "module"
	traceIDKey = "trace_id"
)

// loggerContextKey is a typed key for context values to avoid string collisions.
type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID() to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger manages module-aware logging on top of a shared zap core.
type CentralLogger struct {
	base         *zap.Logger
	rotator      *lumberjack.Logger
	defaultLevel zapcore.Level
	moduleLevels map[string]zapcore.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger with console and optional
// rotating file output.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}

	effective := *cfg
	applyConfigDefaults(&effective)

	var cores []zapcore.Core
	if effective.Console.Enabled {
		cores = append(cores, newConsoleCore(os.Stdout, parseLevel(effective.Console.Level)))
	}

	var rotator *lumberjack.Logger
	if fo := effective.FileOutput; fo != nil && fo.Enabled {
		core, r, err := newRotatingFileCore(fo)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file %s: %w", fo.Path, err)
		}
		cores = append(cores, core)
		rotator = r
	}

	return newCentralLogger(zapcore.NewTee(cores...), &effective, rotator), nil
}

func newCentralLogger(core zapcore.Core, cfg *LoggingConfig, rotator *lumberjack.Logger) *CentralLogger {
	levels := make(map[string]zapcore.Level, len(cfg.ModuleLevels))
	for module, level := range cfg.ModuleLevels {
		levels[module] = parseLevel(level)
	}
	return &CentralLogger{
		base:         zap.New(core),
		rotator:      rotator,
		defaultLevel: parseLevel(cfg.DefaultLevel),
		moduleLevels: levels,
	}
}

// newConsoleCore writes human-readable lines without timestamps.
func newConsoleCore(w io.Writer, level zapcore.Level) zapcore.Core {
	encoderConfig := newEncoderConfig()
	encoderConfig.TimeKey = ""
	// hide Sync from zap so flushing stdout never reports EINVAL
	sink := zapcore.AddSync(struct{ io.Writer }{w})
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, level)
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == traceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

// Module returns a logger scoped to the named module.
func (cl *CentralLogger) Module(name string) Logger {
	return &moduleLogger{
		central: cl,
		module:  name,
		level:   cl.levelFor(name),
	}
}

// levelFor resolves the most specific configured level for a dotted module name.
func (cl *CentralLogger) levelFor(module string) zapcore.Level {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	for name := module; name != ""; {
		if level, ok := cl.moduleLevels[name]; ok {
			return level
		}
		idx := strings.LastIndexByte(name, '.')
		if idx < 0 {
			break
		}
		name = name[:idx]
	}
	return cl.defaultLevel
}

// Flush ensures all buffered logs are written
func (cl *CentralLogger) Flush() error {
	return cl.base.Sync()
}

// Close flushes and closes the log file, if any.
func (cl *CentralLogger) Close() error {
	flushErr := cl.Flush()

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.rotator != nil {
		if err := cl.rotator.Close(); err != nil {
			return err
		}
		cl.rotator = nil
	}
	return flushErr
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return traceLevel
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

func zapLevel(level LogLevel) zapcore.Level {
	return parseLevel(string(level))
}

// moduleLogger is the Logger implementation handed out by CentralLogger.
type moduleLogger struct {
	central *CentralLogger
	module  string
	level   zapcore.Level
	fields  []Field
}

func (m *moduleLogger) Module(name string) Logger {
	full := m.module + "." + name
	return &moduleLogger{
		central: m.central,
		module:  full,
		level:   m.central.levelFor(full),
		fields:  slices.Clone(m.fields),
	}
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(traceLevel, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(zapcore.DebugLevel, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(zapcore.InfoLevel, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(zapcore.WarnLevel, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(zapcore.ErrorLevel, msg, fields) }

func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(zapLevel(level), msg, fields)
}

func (m *moduleLogger) With(fields ...Field) Logger {
	return &moduleLogger{
		central: m.central,
		module:  m.module,
		level:   m.level,
		fields:  slices.Concat(m.fields, fields),
	}
}

func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return m
	}
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok || traceID == "" {
		return m
	}
	return m.With(String(traceIDKey, traceID))
}

func (m *moduleLogger) Flush() error {
	return m.central.Flush()
}

func (m *moduleLogger) log(level zapcore.Level, msg string, fields []Field) {
	if level < m.level {
		return
	}
	ce := m.central.base.Check(level, msg)
	if ce == nil {
		return
	}

	zf := make([]zap.Field, 0, len(m.fields)+len(fields)+1)
	if m.module != "" {
		zf = append(zf, zap.String(moduleKey, m.module))
	}
	for i := range m.fields {
		zf = append(zf, toZapField(m.fields[i]))
	}
	for i := range fields {
		zf = append(zf, toZapField(fields[i]))
	}
	ce.Write(zf...)
}

func toZapField(f Field) zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case uint64:
		return zap.Uint64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.String(f.Key, v.Round(time.Microsecond).String())
	case time.Time:
		return zap.Time(f.Key, v)
	case []string:
		return zap.Strings(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}
