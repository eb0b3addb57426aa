// Package config loads hexlua settings from defaults, an optional config
// file and HEXLUA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "hexlua"
	// EnvPrefix is the prefix for environment overrides (HEXLUA_DB_PATH, ...).
	EnvPrefix = "HEXLUA"
)

// Keys understood by Load.
const (
	KeyDBPath    = "db_path"
	KeyLogLevel  = "log_level"
	KeyWorkers   = "workers"
	KeyBatchSize = "batch_size"
	KeyRegistry  = "registry"
	KeyOutput    = "output"
	KeyNamespace = "namespace"
)

// ErrConfigNotFound is returned when an explicit config file does not exist
var ErrConfigNotFound = errors.New("config file not found")

// Config is the resolved hexlua configuration
type Config struct {
	DBPath    string `mapstructure:"db_path"`
	LogLevel  string `mapstructure:"log_level"`
	Workers   int    `mapstructure:"workers"`
	BatchSize int    `mapstructure:"batch_size"`
	Registry  string `mapstructure:"registry"`
	Output    string `mapstructure:"output"`
	Namespace string `mapstructure:"namespace"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DBPath:    filepath.Join("~", ".hexlua", "hexlua.db"),
		LogLevel:  "info",
		Workers:   runtime.NumCPU(),
		BatchSize: 50,
		Registry:  "registry.json",
		Output:    "hex.lua",
		Namespace: "Hex",
	}
}

// New returns a viper instance with defaults and environment bindings set.
// Callers may bind command flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(KeyDBPath, defaults.DBPath)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyWorkers, defaults.Workers)
	v.SetDefault(KeyBatchSize, defaults.BatchSize)
	v.SetDefault(KeyRegistry, defaults.Registry)
	v.SetDefault(KeyOutput, defaults.Output)
	v.SetDefault(KeyNamespace, defaults.Namespace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (if set) into v and decodes the result. Without an
// explicit file, hexlua.{yaml,json,toml} in the current directory or
// $XDG_CONFIG_HOME/hexlua is used when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
		}
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	dbPath, err := ExpandHome(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cfg.DBPath = dbPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%s is required", KeyDBPath)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", KeyWorkers, c.Workers)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", KeyBatchSize, c.BatchSize)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid %s %q: %w", KeyLogLevel, c.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// EnsureDBDir creates the directory holding the database file
func (c *Config) EnsureDBDir() error {
	if c.DBPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

func configDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}
