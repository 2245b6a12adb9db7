package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config dir.
const FileName = "phototrip.cfg.json"

// EnvPrefix prefixes environment overrides: PHOTOTRIP_SERVER_ADDR sets server.addr.
const EnvPrefix = "PHOTOTRIP"

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr        string   `json:"addr" mapstructure:"addr"`
	PhotosRoot  string   `json:"photosRoot" mapstructure:"photosRoot"`
	PhotoPrefix string   `json:"photoPrefix" mapstructure:"photoPrefix"`
	CorsOrigins []string `json:"corsOrigins" mapstructure:"corsOrigins"`
	APIKey      string   `json:"apiKey" mapstructure:"apiKey"`
}

// ManifestConfig holds the manifest source settings.
type ManifestConfig struct {
	Source  string        `json:"source" mapstructure:"source"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ExtractConfig holds tag extraction settings.
type ExtractConfig struct {
	Workers  int    `json:"workers" mapstructure:"workers"`
	Timezone string `json:"timezone" mapstructure:"timezone"`
}

// LocationConfig selects what happens to photos without a usable location.
type LocationConfig struct {
	Policy      string  `json:"policy" mapstructure:"policy"`
	FallbackLat float64 `json:"fallbackLat" mapstructure:"fallbackLat"`
	FallbackLon float64 `json:"fallbackLon" mapstructure:"fallbackLon"`
}

// TripConfig holds the playback defaults.
type TripConfig struct {
	StepDurationMs  int  `json:"stepDurationMs" mapstructure:"stepDurationMs"`
	ShowPhotos      bool `json:"showPhotos" mapstructure:"showPhotos"`
	ResetOnFinish   bool `json:"resetOnFinish" mapstructure:"resetOnFinish"`
	FrameIntervalMs int  `json:"frameIntervalMs" mapstructure:"frameIntervalMs"`
}

// StepDuration returns StepDurationMs as a duration.
func (c TripConfig) StepDuration() time.Duration {
	return time.Duration(c.StepDurationMs) * time.Millisecond
}

// FrameInterval returns FrameIntervalMs as a duration.
func (c TripConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// ViewConfig holds the initial view toggles.
type ViewConfig struct {
	Clustering     bool `json:"clustering" mapstructure:"clustering"`
	GalleryVisible bool `json:"galleryVisible" mapstructure:"galleryVisible"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the SQLite storage backend settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects the extracted-tag cache backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// MonitorConfig holds the status report settings.
type MonitorConfig struct {
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// InfluxConfig holds the metrics flush settings. Connection keys are read by
// the influx package directly.
type InfluxConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.photosRoot", "./photos")
	viper.SetDefault("server.photoPrefix", "/photos/")
	viper.SetDefault("server.corsOrigins", []string{"*"})
	viper.SetDefault("server.apiKey", "")

	viper.SetDefault("manifest.source", "photos.json")
	viper.SetDefault("manifest.timeout", "30s")

	viper.SetDefault("extract.workers", 8)
	viper.SetDefault("extract.timezone", "UTC")

	viper.SetDefault("location.policy", "fallback")
	viper.SetDefault("location.fallbackLat", 48.8566)
	viper.SetDefault("location.fallbackLon", 2.3522)

	viper.SetDefault("trip.stepDurationMs", 1500)
	viper.SetDefault("trip.showPhotos", true)
	viper.SetDefault("trip.resetOnFinish", false)
	viper.SetDefault("trip.frameIntervalMs", 16)

	viper.SetDefault("view.clustering", true)
	viper.SetDefault("view.galleryVisible", false)

	viper.SetDefault("dispatcher.bufferSize", 1024)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./cache")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./phototrip.db")

	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "phototrip")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "phototrip")
	viper.SetDefault("influx.flushInterval", "2s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// not an error when optional is set; defaults and environment still apply.
func Load(configDir string, optional bool) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if optional && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Used returns the path of the config file read by Load, or "".
func Used() string {
	return viper.ConfigFileUsed()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig reads the server section.
func GetServerConfig() ServerConfig {
	var c ServerConfig
	unmarshal("server", &c)
	return c
}

// GetManifestConfig reads the manifest section.
func GetManifestConfig() ManifestConfig {
	var c ManifestConfig
	unmarshal("manifest", &c)
	return c
}

// GetExtractConfig reads the extract section.
func GetExtractConfig() ExtractConfig {
	var c ExtractConfig
	unmarshal("extract", &c)
	return c
}

// GetLocationConfig reads the location section.
func GetLocationConfig() LocationConfig {
	var c LocationConfig
	unmarshal("location", &c)
	return c
}

// GetTripConfig reads the trip section.
func GetTripConfig() TripConfig {
	var c TripConfig
	unmarshal("trip", &c)
	return c
}

// GetViewConfig reads the view section.
func GetViewConfig() ViewConfig {
	var c ViewConfig
	unmarshal("view", &c)
	return c
}

// GetStorageConfig reads the storage section.
func GetStorageConfig() StorageConfig {
	var c StorageConfig
	unmarshal("storage", &c)
	return c
}

// GetGraylogConfig reads the graylog section.
func GetGraylogConfig() GraylogConfig {
	var c GraylogConfig
	unmarshal("graylog", &c)
	return c
}

// GetMonitorConfig reads the monitor section.
func GetMonitorConfig() MonitorConfig {
	var c MonitorConfig
	unmarshal("monitor", &c)
	return c
}

// GetInfluxConfig reads the influx section.
func GetInfluxConfig() InfluxConfig {
	var c InfluxConfig
	unmarshal("influx", &c)
	return c
}

// unmarshal decodes the section under key. viper.UnmarshalKey reads nested
// maps and misses environment overrides, so every leaf is copied through Get
// into a scratch instance first.
func unmarshal(key string, out any) {
	sub := viper.New()
	prefix := strings.ToLower(key) + "."
	for _, k := range viper.AllKeys() {
		if strings.HasPrefix(k, prefix) {
			sub.Set(strings.TrimPrefix(k, prefix), viper.Get(k))
		}
	}
	_ = sub.Unmarshal(out)
}
