package logger

import (
	"os"
	"sync"
)

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the process-wide CentralLogger. It should be called once
// during startup after configuration is loaded.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the process-wide CentralLogger, falling back to an info
// level console logger when none has been set.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger == nil {
		globalLogger = newCentralLogger(
			newConsoleCore(os.Stdout, parseLevel(DefaultLogLevel)),
			&LoggingConfig{DefaultLevel: DefaultLogLevel},
			nil,
		)
	}
	return globalLogger
}
