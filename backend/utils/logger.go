package utils

import (
	"io"
	"log"
	"os"
)

// LoggerConfig defines the logger configuration
type LoggerConfig struct {
	// Output stream (os.Stdout, a file, a buffer in tests)
	Output io.Writer
	// Component prefix, e.g. "[scheduler] "
	Prefix string
	// Add caller file and line
	WithCaller bool
	// Enable/disable console colors
	EnableColors bool
}

// InitLogger initializes and returns the logger.
// The same logger is handed to the engine, repositories, publisher and scheduler.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Test Engine] " + cfg.Prefix
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m" // Cyan
	}

	flags := log.LstdFlags | log.LUTC | log.Lmsgprefix
	if cfg.WithCaller {
		flags |= log.Lshortfile
	}
	return log.New(cfg.Output, prefix, flags)
}

// WithPrefix returns a logger with the same output and an added component prefix
func WithPrefix(base *log.Logger, component string) *log.Logger {
	return log.New(base.Writer(), base.Prefix()+component, base.Flags())
}
