// Package config provides functionality for managing configuration options
// for the application using command-line flags, a .env file, a JSON or TOML
// config file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port" toml:"port"`

	// DatabaseDriver selects the SQL driver: "sqlite3" or "postgres".
	DatabaseDriver string `json:"database_driver" toml:"database_driver"`

	// DatabaseDSN is a file path for sqlite3 or a connection string for postgres.
	DatabaseDSN string `json:"database_dsn" toml:"database_dsn"`

	// UploadDir is the asset directory holding uploaded files.
	UploadDir string `json:"upload_dir" toml:"upload_dir"`

	// PartitionAssets stores each card's uploads in its own subdirectory.
	PartitionAssets bool `json:"partition_assets" toml:"partition_assets"`

	// BaseURL is the external URL prefix used for shareable card links.
	// When empty it is derived from the incoming request.
	BaseURL string `json:"base_url" toml:"base_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" toml:"log_level"`

	// RateLimit is the number of card creations allowed per IP per minute.
	RateLimit int `json:"rate_limit" toml:"rate_limit"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `json:"cors_origins" toml:"cors_origins"`

	// NATSURL enables card-created events when set.
	NATSURL string `json:"nats_url" toml:"nats_url"`
	// NATSSubject is the subject card-created events are published on.
	NATSSubject string `json:"nats_subject" toml:"nats_subject"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" toml:"tls_cert"`
	TLSKey  string `json:"tls_key" toml:"tls_key"`

	// Config is the path to the config file.
	Config string `json:"-" toml:"-"`
}

// Defaults returns Options populated with default values.
func Defaults() *Options {
	return &Options{
		Port:           "localhost:8080",
		DatabaseDriver: "sqlite3",
		DatabaseDSN:    "instance/cards.db",
		UploadDir:      "static/uploads",
		LogLevel:       "info",
		RateLimit:      30,
		NATSSubject:    "cards.created",
		Config:         "config.json",
	}
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	options, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("error while parsing configuration: %v", err)
	}
	return options
}

// ParseArgs builds Options from args. Values are applied in order:
// defaults and flags, .env file, config file, environment variables.
func ParseArgs(args []string) (*Options, error) {
	options := Defaults()

	flags := flag.NewFlagSet("cardkeeper", flag.ContinueOnError)
	flags.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	flags.StringVar(&options.DatabaseDriver, "driver", options.DatabaseDriver, "database driver (sqlite3|postgres)")
	flags.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	flags.StringVar(&options.UploadDir, "u", options.UploadDir, "upload directory")
	flags.BoolVar(&options.PartitionAssets, "partition-assets", options.PartitionAssets, "store uploads in a per-card subdirectory")
	flags.StringVar(&options.BaseURL, "base-url", options.BaseURL, "external base URL for card links")
	flags.StringVar(&options.LogLevel, "log-level", options.LogLevel, "log level")
	flags.IntVar(&options.RateLimit, "rate-limit", options.RateLimit, "card creations per IP per minute")
	flags.StringVar(&options.NATSURL, "nats", options.NATSURL, "NATS server URL for card events")
	flags.StringVar(&options.TLSCert, "tls-cert", options.TLSCert, "TLS certificate path")
	flags.StringVar(&options.TLSKey, "tls-key", options.TLSKey, "TLS key path")
	flags.StringVar(&options.Config, "config", options.Config, "path to config file")
	flags.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := loadFile(options.Config, options); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(options); err != nil {
		return nil, err
	}

	return options, nil
}

// loadFile decodes the config file at path into options. A missing file is ignored.
func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if strings.HasSuffix(path, ".toml") {
		if _, err := toml.Decode(string(data), options); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, options); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func applyEnv(options *Options) error {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		options.Port = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		options.DatabaseDriver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		options.UploadDir = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		options.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		options.NATSURL = v
	}
	if v := os.Getenv("NATS_SUBJECT"); v != "" {
		options.NATSSubject = v
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		options.TLSCert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		options.TLSKey = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		options.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT value: %w", err)
		}
		options.RateLimit = n
	}
	if v := os.Getenv("PARTITION_ASSETS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PARTITION_ASSETS value: %w", err)
		}
		options.PartitionAssets = b
	}
	return nil
}
