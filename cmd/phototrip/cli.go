package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phototrip/phototrip/internal/config"
	"github.com/phototrip/phototrip/internal/logging"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:     AppName,
	Short:   "Photo trip replay engine",
	Long:    "Loads a photo manifest, places every photo on a map and replays the trip in the browser.",
	Version: fmt.Sprintf("%s (built %s)", CurrentVersion, BuildDate),

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(configDir, true); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			viper.Set("logLevel", logLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

// setupLogging configures the slog manager. File output goes to the session
// log under logsDir; the returned closer releases it.
func setupLogging(withFile bool, attrs logging.ContextProvider) (io.Closer, error) {
	opts := logging.Options{
		Level:   config.GetString("logLevel"),
		Console: os.Stderr,
		Context: attrs,
	}

	var file io.Closer = nopCloser{}
	if withFile {
		f, err := logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
		if err != nil {
			return nil, err
		}
		opts.File = f
		file = f
	}

	gl := config.GetGraylogConfig()
	if gl.Enabled {
		opts.GraylogAddr = gl.Address
	}

	err := SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	if err != nil {
		Logger.Warn("Graylog logging disabled", "error", err)
	}
	if used := config.Used(); used != "" {
		Logger.Info("Loaded config", "file", used)
	} else {
		Logger.Info("No config file found, using defaults", "dir", configDir)
	}
	return file, nil
}

// newZerolog builds the zerolog logger used by the loop, database and
// metrics managers.
func newZerolog() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString("logLevel")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Str("app", AppName).
		Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
