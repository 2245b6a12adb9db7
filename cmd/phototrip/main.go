package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/phototrip/phototrip/internal/logging"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "phototrip"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	SessionStartTime time.Time = time.Now()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
