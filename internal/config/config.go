package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "fieldmap.cfg.json"

// StorageConfig selects where the document lives.
type StorageConfig struct {
	Type   string `json:"type" mapstructure:"type"`     // json, sqlite or postgres
	Mirror string `json:"mirror" mapstructure:"mirror"` // optional second backend written on every save
	SQLite SQLiteConfig
	DB     DBConfig
}

// SQLiteConfig holds SQLite storage settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// ReplayConfig controls the position update simulation.
type ReplayConfig struct {
	Interval time.Duration
	Order    string // file or timestamp
}

// ViewportConfig is the initial map view.
type ViewportConfig struct {
	Lat, Lng  float64
	Zoom      int
	Width     int
	Height    int
	MinZoom   int
	MaxZoom   int
	MarkerPix int
}

// DisplayConfig holds the map display connection settings.
type DisplayConfig struct {
	URL    string
	Secret string
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// GraylogConfig holds GELF log sink settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool

	MetricInterval time.Duration
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults are in
// place even when the file cannot be read.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("dataFile", "SoldierData.json")

	viper.SetDefault("replay.interval", "2s")
	viper.SetDefault("replay.order", "file")

	viper.SetDefault("marker.size", 30)

	viper.SetDefault("viewport.lat", 0.0)
	viper.SetDefault("viewport.lng", 0.0)
	viper.SetDefault("viewport.zoom", 2)
	viper.SetDefault("viewport.width", 1024)
	viper.SetDefault("viewport.height", 768)
	viper.SetDefault("viewport.minZoom", 2)
	viper.SetDefault("viewport.maxZoom", 17)

	viper.SetDefault("storage.type", "json")
	viper.SetDefault("storage.mirror", "")
	viper.SetDefault("storage.sqlite.path", "./fieldmap.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fieldmap")

	viper.SetDefault("display.url", "")
	viper.SetDefault("display.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "fieldmap")
	viper.SetDefault("influx.bucket", "soldier_positions")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.log.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fieldmap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricInterval", "30s")

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
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

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:   viper.GetString("storage.type"),
		Mirror: viper.GetString("storage.mirror"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetReplayConfig returns the simulation settings.
func GetReplayConfig() ReplayConfig {
	return ReplayConfig{
		Interval: viper.GetDuration("replay.interval"),
		Order:    viper.GetString("replay.order"),
	}
}

// GetViewportConfig returns the initial view and marker size.
func GetViewportConfig() ViewportConfig {
	return ViewportConfig{
		Lat:       viper.GetFloat64("viewport.lat"),
		Lng:       viper.GetFloat64("viewport.lng"),
		Zoom:      viper.GetInt("viewport.zoom"),
		Width:     viper.GetInt("viewport.width"),
		Height:    viper.GetInt("viewport.height"),
		MinZoom:   viper.GetInt("viewport.minZoom"),
		MaxZoom:   viper.GetInt("viewport.maxZoom"),
		MarkerPix: viper.GetInt("marker.size"),
	}
}

// GetDisplayConfig returns the map display connection settings.
func GetDisplayConfig() DisplayConfig {
	return DisplayConfig{
		URL:    viper.GetString("display.url"),
		Secret: viper.GetString("display.secret"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),

		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}
