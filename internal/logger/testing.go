package logger

import (
	"io"

	"go.uber.org/zap/zapcore"
)

// NewTestLogger returns a logger that writes JSON lines to w. It is meant for
// tests that assert on log output.
func NewTestLogger(w io.Writer, level LogLevel) Logger {
	encoderConfig := newEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapLevel(level),
	)
	cl := newCentralLogger(core, &LoggingConfig{DefaultLevel: string(level)}, nil)
	return cl.Module("test")
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	cl := newCentralLogger(zapcore.NewNopCore(), &LoggingConfig{DefaultLevel: "error"}, nil)
	return cl.Module("")
}
