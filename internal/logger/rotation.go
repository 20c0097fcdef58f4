package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newRotatingFileCore creates a JSON core that writes to a size-rotated file.
func newRotatingFileCore(out *FileOutput) (zapcore.Core, *lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
		return nil, nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   out.Path,
		MaxSize:    out.MaxSize,
		MaxBackups: out.MaxRotatedFiles,
		MaxAge:     out.MaxAge,
		Compress:   out.Compress,
	}

	encoderConfig := newEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		parseLevel(out.Level),
	)
	return core, rotator, nil
}

// Rotate closes the current log file and opens a new one. It is a no-op
// when file output is disabled.
func (cl *CentralLogger) Rotate() error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if cl.rotator == nil {
		return nil
	}
	return cl.rotator.Rotate()
}
