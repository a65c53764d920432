package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"nexus-ats/internal/model"
	"nexus-ats/internal/validation"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Mongo        MongoConfig        `koanf:"mongo"`
	Storage      StorageConfig      `koanf:"storage"`
	Documents    DocumentsConfig    `koanf:"documents"`
	Applications ApplicationsConfig `koanf:"applications"`
	API          APIConfig          `koanf:"api"`
	Logging      LoggingConfig      `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MongoConfig struct {
	URI            string        `koanf:"uri" validate:"required"`
	Database       string        `koanf:"database" validate:"required"`
	Collection     string        `koanf:"collection" validate:"required"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=filesystem postgres"`
	Root        string `koanf:"root" validate:"required_if=Driver filesystem"`
	PostgresDSN string `koanf:"postgres_dsn" validate:"required_if=Driver postgres"`
}

type DocumentsConfig struct {
	MaxFileSize      int64    `koanf:"max_file_size" validate:"gt=0"`
	AllowedMimeTypes []string `koanf:"allowed_mime_types" validate:"min=1"`
	ExtractText      bool     `koanf:"extract_text"`
}

type ApplicationsConfig struct {
	MaxPerCandidate int `koanf:"max_per_candidate" validate:"gt=0"`
}

type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size" validate:"gt=0"`
	MaxPageSize     int           `koanf:"max_page_size" validate:"gtefield=DefaultPageSize"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "nexus_ats",
			Collection:     "candidates",
			ConnectTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "filesystem",
			Root:   "./uploads",
		},
		Documents: DocumentsConfig{
			MaxFileSize:      model.MaxDocumentSize,
			AllowedMimeTypes: append([]string{}, model.AllowedMimeTypes...),
			ExtractText:      true,
		},
		Applications: ApplicationsConfig{
			MaxPerCandidate: 50,
		},
		API: APIConfig{
			DefaultPageSize: model.DefaultPageLimit,
			MaxPageSize:     model.MaxPageLimit,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, an optional YAML file and environment variables, in
// that order of precedence, then validates the result.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks struct rules and that configured MIME types are a subset
// of the ones documents may ever have.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	for _, mt := range c.Documents.AllowedMimeTypes {
		if !isKnownMime(mt) {
			return fmt.Errorf("documents.allowed_mime_types: %q is not a supported type", mt)
		}
	}
	return nil
}

func isKnownMime(mt string) bool {
	for _, known := range model.AllowedMimeTypes {
		if mt == known {
			return true
		}
	}
	return false
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"documents.allowed_mime_types",
	"api.cors_origins",
}

// processSliceFields splits comma-separated env values for slice settings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables to config paths. Unlisted
// variables are ignored.
var envMappings = map[string]string{
	"server_host":                    "server.host",
	"port":                           "server.port",
	"server_read_timeout":            "server.read_timeout",
	"server_write_timeout":           "server.write_timeout",
	"server_shutdown_timeout":        "server.shutdown_timeout",
	"mongo_uri":                      "mongo.uri",
	"mongodb_uri":                    "mongo.uri",
	"mongo_database":                 "mongo.database",
	"mongo_collection":               "mongo.collection",
	"mongo_connect_timeout":          "mongo.connect_timeout",
	"storage_driver":                 "storage.driver",
	"storage_root":                   "storage.root",
	"upload_dir":                     "storage.root",
	"database_url":                   "storage.postgres_dsn",
	"storage_postgres_dsn":           "storage.postgres_dsn",
	"max_file_size":                  "documents.max_file_size",
	"allowed_mime_types":             "documents.allowed_mime_types",
	"extract_text":                   "documents.extract_text",
	"max_applications_per_candidate": "applications.max_per_candidate",
	"default_page_size":              "api.default_page_size",
	"max_page_size":                  "api.max_page_size",
	"rate_limit_reqs":                "api.rate_limit_reqs",
	"rate_limit_window":              "api.rate_limit_window",
	"cors_origins":                   "api.cors_origins",
	"log_level":                      "logging.level",
	"log_format":                     "logging.format",
	"log_caller":                     "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
