// Package config resolves settings from a .env file, EXDFORM_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"exdform/internal/domain"
	"exdform/internal/export"
	"exdform/internal/logger"
)

const envPrefix = "EXDFORM_"

// DefaultStorePath is the sqlite file used when nothing is configured.
const DefaultStorePath = "data/records.db"

type Config struct {
	Store      StoreConfig
	SchemaPath string
	Log        logger.Config
	Export     ExportConfig
	Publish    export.PublishConfig
}

type StoreConfig struct {
	Driver   string
	Path     string // sqlite file
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	URI      string
}

type ExportConfig struct {
	Dir      string
	Schedule string
}

// Load reads .env when present and resolves the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) *Config {
	get := func(key string) string { return strings.TrimSpace(getenv(envPrefix + key)) }

	return &Config{
		Store: StoreConfig{
			Driver:   firstNonEmpty(get("STORE_DRIVER"), string(domain.DatabaseDriverSQLite)),
			Path:     firstNonEmpty(get("STORE_PATH"), DefaultStorePath),
			Host:     get("STORE_HOST"),
			Port:     parseInt(get("STORE_PORT")),
			Database: get("STORE_DATABASE"),
			Username: get("STORE_USER"),
			Password: get("STORE_PASSWORD"),
			SSLMode:  get("STORE_SSLMODE"),
			URI:      get("STORE_URI"),
		},
		SchemaPath: get("SCHEMA"),
		Log: logger.Config{
			Level:       firstNonEmpty(get("LOG_LEVEL"), "info"),
			Development: parseBool(get("LOG_DEV"), false),
		},
		Export: ExportConfig{
			Dir:      firstNonEmpty(get("EXPORT_DIR"), "exports"),
			Schedule: get("EXPORT_SCHEDULE"),
		},
		Publish: export.PublishConfig{
			Endpoint:  get("S3_ENDPOINT"),
			Region:    firstNonEmpty(get("S3_REGION"), "us-east-1"),
			AccessKey: get("S3_ACCESS_KEY"),
			SecretKey: get("S3_SECRET_KEY"),
			Bucket:    get("S3_BUCKET"),
			UseSSL:    parseBool(get("S3_USE_SSL"), true),
		},
	}
}

// RegisterFlags binds the settings shared by every command to fs, using the
// current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Store.Driver, "driver", c.Store.Driver, "record store driver: sqlite, postgres, mysql, mongodb")
	fs.StringVar(&c.Store.Path, "db", c.Store.Path, "sqlite store file")
	fs.StringVar(&c.Store.URI, "dsn", c.Store.URI, "connection string for server stores")
	fs.StringVar(&c.SchemaPath, "schema", c.SchemaPath, "schema file (.csv, .yaml, .json)")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn, error")
	fs.BoolVar(&c.Log.Development, "log-dev", c.Log.Development, "human-readable logs")
}

// Connection returns the record store connection.
func (c *Config) Connection() domain.DatabaseConnection {
	driver := domain.DatabaseDriver(strings.ToLower(c.Store.Driver))
	conn := domain.DatabaseConnection{
		Driver:   driver,
		Host:     c.Store.Host,
		Port:     c.Store.Port,
		Database: c.Store.Database,
		Username: c.Store.Username,
		Password: c.Store.Password,
		SSLMode:  c.Store.SSLMode,
		URI:      c.Store.URI,
	}
	if driver == domain.DatabaseDriverSQLite || driver == "" {
		conn.Host = c.Store.Path
		conn.URI = ""
	}
	return conn
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
