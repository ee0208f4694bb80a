package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/Alp4ka/pagenav"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Driver       string         `yaml:"driver" json:"driver"`
	DSN          string         `yaml:"dsn" json:"dsn"`
	ParentColumn string         `yaml:"parent_column" json:"parent_column"`
	Redis        string         `yaml:"redis" json:"redis"`
	CountTTL     time.Duration  `yaml:"count_ttl" json:"count_ttl"`
	Lookahead    bool           `yaml:"lookahead" json:"lookahead"`
	Pseudo       bool           `yaml:"pseudo" json:"pseudo"`
	Log          LogConfig      `yaml:"log" json:"log"`
	Page         pagenav.Config `yaml:"page" json:"page"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Driver:       DriverSQLite,
		ParentColumn: pagenav.DefaultParentColumn,
		CountTTL:     pagenav.DefaultCountCacheTTL,
		Log: LogConfig{
			Level:  "warning",
			Format: "text",
		},
		Page: pagenav.Config{Limit: pagenav.DefaultLimit},
	}
}

// LoadFromFile reads a YAML config on top of DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the config and resolves operator spellings in filters.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported driver '%s'", c.Driver)
	}

	if c.DSN == "" {
		return fmt.Errorf("dsn cannot be empty")
	}

	if c.Page.Source.Collection() == "" {
		return fmt.Errorf("collection path cannot be empty")
	}

	for i, w := range c.Page.Where {
		op, err := pagenav.ParseOperator(string(w.Operator))
		if err != nil {
			return fmt.Errorf("filter on '%s': %w", w.Column, err)
		}
		c.Page.Where[i].Operator = op
	}

	for _, o := range c.Page.OrderBy {
		if o.Direction != pagenav.DirectionASC && o.Direction != pagenav.DirectionDESC {
			return fmt.Errorf("invalid ordering direction '%s' on '%s'", o.Direction, o.Column)
		}
	}

	return nil
}
