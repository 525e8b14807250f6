package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// New creates a named hclog logger with standard settings.
func New(name string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(Level()),
		JSONFormat: os.Getenv("BINDER_LOG_JSON") == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// Level returns the configured log level from the environment.
func Level() string {
	level := os.Getenv("BINDER_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return level
}
