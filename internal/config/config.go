package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL      string `yaml:"database_url"`
	APIPort          string `yaml:"api_port"`
	NumImportWorkers int    `yaml:"num_import_workers"`
}

// New builds the configuration from the environment. DATABASE_URL is the only
// required value.
func New() (*Config, error) {
	cfg := &Config{
		APIPort:          "8080",
		NumImportWorkers: 4,
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	return cfg, nil
}

// NewFromFile reads a YAML configuration file, then lets environment
// variables override it.
func NewFromFile(path string) (*Config, error) {
	cfg := &Config{
		APIPort:          "8080",
		NumImportWorkers: 4,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is not set in %s nor in DATABASE_URL", path)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		c.APIPort = v
	}

	workers, err := getEnvAsInt("NUM_IMPORT_WORKERS", c.NumImportWorkers)
	if err != nil {
		return err
	}
	c.NumImportWorkers = workers

	return nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
