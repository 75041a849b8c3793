package logger

import (
	"io"
	"os"
)

// Options configures a Logger. Zero values fall back to stdout JSON at info level.
type Options struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // explicit destination, wins over File
	ServiceName string

	// File enables a rotating log file in addition to stdout.
	File     string
	FileOnly bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultOptions returns stdout JSON logging at info level.
func DefaultOptions() Options {
	return Options{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "joke-manager",
	}
}

func (o Options) withDefaults() Options {
	if o.Level == "" {
		o.Level = "info"
	}
	if o.Format == "" {
		o.Format = "json"
	}
	if o.ServiceName == "" {
		o.ServiceName = "joke-manager"
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 100
	}
	return o
}
