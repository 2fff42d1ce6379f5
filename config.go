package qmap

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config holds the compiler engine configuration.
type Config struct {
	// Database type the executor substitutes placeholders for.
	// One of postgres, mysql, mariadb, sqlite
	DBType string `mapstructure:"db_type" json:"db_type" yaml:"db_type" jsonschema:"title=Database Type,enum=postgres,enum=mysql,enum=mariadb,enum=sqlite"`

	// Prefix prepended to every table name
	TablePrefix string `mapstructure:"table_prefix" json:"table_prefix,omitempty" yaml:"table_prefix,omitempty" jsonschema:"title=Table Name Prefix"`

	// When enabled compiled statements are cached and reused
	EnableCache bool `mapstructure:"enable_cache" json:"enable_cache,omitempty" yaml:"enable_cache,omitempty" jsonschema:"title=Enable Statement Cache,default=false"`

	// Number of compiled statements the cache retains
	CacheSize int `mapstructure:"cache_size" json:"cache_size,omitempty" yaml:"cache_size,omitempty" jsonschema:"title=Statement Cache Size,default=500"`

	// Number of generated statements the query log retains
	QueryLogSize int `mapstructure:"query_log_size" json:"query_log_size,omitempty" yaml:"query_log_size,omitempty" jsonschema:"title=Query Log Size,default=50"`

	// Log every generated statement
	Debug bool `mapstructure:"debug" json:"debug,omitempty" yaml:"debug,omitempty" jsonschema:"title=Debug Logging,default=false"`
}

// NewConfig reads a YAML config.
func NewConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the config and fills defaults.
func (c *Config) Validate() error {
	switch c.DBType {
	case "", "postgres", "mysql", "mariadb", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db_type %q: supported types are postgres, mysql, mariadb, sqlite", c.DBType)
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 500
	}
	if c.QueryLogSize <= 0 {
		c.QueryLogSize = 50
	}
	return nil
}
