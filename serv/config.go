package serv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qbloq/qmap"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Core is the compiler engine configuration embedded in the service config.
type Core = qmap.Config

// Configuration for the qmap service
type Config struct {
	// Configuration for the qmap compiler core
	Core `mapstructure:",squash" jsonschema:"title=Compiler Configuration"`

	// Configuration for the qmap service
	Serv `mapstructure:",squash" jsonschema:"title=Service Configuration"`

	hostPort string
	name     string
	vi       *viper.Viper
}

// Serv holds the HTTP service configuration
type Serv struct {
	// Application name is used in log and debug messages
	AppName string `mapstructure:"app_name" jsonschema:"title=Application Name"`

	// When enabled runs the service with production level defaults
	Production bool `jsonschema:"title=Production Mode,default=false"`

	// The default path to find all configuration files
	ConfigPath string `mapstructure:"config_path" jsonschema:"title=Config Path"`

	// Logging level must be one of debug, error, warn, info
	LogLevel string `mapstructure:"log_level" jsonschema:"title=Log Level,enum=debug,enum=error,enum=warn,enum=info"`

	// Logging format: "auto" (console in dev, JSON in production),
	// "json" or "simple"
	LogFormat string `mapstructure:"log_format" jsonschema:"title=Logging Format,enum=auto,enum=json,enum=simple"`

	// The host and port the service runs on. Example localhost:8080
	HostPort string `mapstructure:"host_port" jsonschema:"title=Host and Port"`

	// Host to run the service on
	Host string `jsonschema:"title=Host"`

	// Port to run the service on
	Port string `jsonschema:"title=Port"`

	// Enables HTTP compression
	HTTPGZip bool `mapstructure:"http_compress" jsonschema:"title=Enable Compression,default=true"`

	// Sets the API rate limits
	RateLimiter RateLimiter `mapstructure:"rate_limiter" jsonschema:"title=Set API Rate Limiting"`

	// Enables reloading the service on config changes. Disabled in production
	WatchAndReload bool `mapstructure:"reload_on_config_change" jsonschema:"title=Reload Config"`

	// Sets the HTTP CORS Access-Control-Allow-Origin header
	AllowedOrigins []string `mapstructure:"cors_allowed_origins" jsonschema:"title=HTTP CORS Allowed Origins"`

	// Sets the HTTP CORS Access-Control-Allow-Headers header
	AllowedHeaders []string `mapstructure:"cors_allowed_headers" jsonschema:"title=HTTP CORS Allowed Headers"`

	// Enables debug logs for CORS
	DebugCORS bool `mapstructure:"cors_debug" jsonschema:"title=Log CORS"`

	// Sets the HTTP Cache-Control header
	CacheControl string `mapstructure:"cache_control" jsonschema:"title=Enable Cache-Control"`

	// Response caching configuration
	Caching CachingConfig `mapstructure:"caching" jsonschema:"title=Caching Configuration"`

	// Database configuration
	DB Database `mapstructure:"database" jsonschema:"title=Database"`
}

// Database holds the database connection configuration
type Database struct {
	Type     string `jsonschema:"title=Type,enum=postgres,enum=mysql,enum=mariadb,enum=sqlite"`
	Host     string `jsonschema:"title=Host"`
	Port     uint16 `jsonschema:"title=Port"`
	DBName   string `mapstructure:"dbname" jsonschema:"title=Database Name"`
	User     string `jsonschema:"title=User"`
	Password string `jsonschema:"title=Password"`

	// Full connection string, overrides the fields above when set
	ConnString string `mapstructure:"connection_string" jsonschema:"title=Connection String"`

	PoolSize        int           `mapstructure:"pool_size" jsonschema:"title=Pool Size"`
	MaxConnections  int           `mapstructure:"max_connections" jsonschema:"title=Max Connections"`
	MaxConnIdleTime time.Duration `mapstructure:"max_connection_idle_time" jsonschema:"title=Max Connection Idle Time"`
	MaxConnLifeTime time.Duration `mapstructure:"max_connection_life_time" jsonschema:"title=Max Connection Life Time"`

	// Number of connect attempts before giving up; 0 retries forever
	ConnectRetries int `mapstructure:"connect_retries" jsonschema:"title=Connect Retries"`
}

// RateLimiter sets the API rate limits
type RateLimiter struct {
	// The number of events per second
	Rate float64 `jsonschema:"title=Connection Rate"`

	// Bucket a burst of at most 'bucket' number of events
	Bucket int `jsonschema:"title=Bucket Size"`

	// The header that contains the client ip
	IPHeader string `mapstructure:"ip_header" jsonschema:"title=IP From HTTP Header,example=X-Forwarded-For"`
}

// CachingConfig configures response caching for read queries
type CachingConfig struct {
	// Enable response caching
	Enable bool `jsonschema:"title=Enable Caching,default=false"`

	// TTL for cached responses in seconds
	TTL int `mapstructure:"ttl" jsonschema:"title=Cache TTL,default=300"`

	// Max number of cached responses
	Size int `mapstructure:"size" jsonschema:"title=Cache Size,default=1000"`
}

// ReadInConfig reads the config file from the given path and merges any
// config it inherits from.
func ReadInConfig(configFile string) (*Config, error) {
	return readInConfig(configFile, nil)
}

// ReadInConfigFS is ReadInConfig over a virtual filesystem.
func ReadInConfigFS(configFile string, fs afero.Fs) (*Config, error) {
	return readInConfig(configFile, fs)
}

func readInConfig(configFile string, fs afero.Fs) (*Config, error) {
	cp := filepath.Dir(configFile)
	vi := newViper(cp, filepath.Base(configFile))
	if fs != nil {
		vi.SetFs(fs)
	}

	if err := vi.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if pcf := vi.GetString("inherits"); pcf != "" {
		cf := vi.ConfigFileUsed()
		vi = newViper(cp, pcf)
		if fs != nil {
			vi.SetFs(fs)
		}

		if err := vi.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if v := vi.GetString("inherits"); v != "" {
			return nil, fmt.Errorf("config '%s' cannot inherit '%s', only one level is allowed",
				pcf, v)
		}

		vi.SetConfigFile(cf)
		if err := vi.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	c := &Config{vi: vi}
	c.name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))

	if err := vi.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Core.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConfig parses config bytes in the given format.
func NewConfig(b []byte, format string) (*Config, error) {
	vi := newViperWithDefaults()
	vi.SetConfigType(format)

	if err := vi.ReadConfig(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	c := &Config{vi: vi}
	if err := vi.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Core.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newViperWithDefaults() *viper.Viper {
	vi := viper.New()

	vi.SetDefault("host_port", "0.0.0.0:8080")
	vi.SetDefault("log_level", "info")
	vi.SetDefault("log_format", "auto")

	vi.SetDefault("database.type", "postgres")
	vi.SetDefault("database.host", "localhost")
	vi.SetDefault("database.port", 5432)
	vi.SetDefault("database.user", "postgres")
	vi.SetDefault("database.password", "")
	vi.SetDefault("database.pool_size", 10)

	vi.SetDefault("caching.ttl", 300)
	vi.SetDefault("caching.size", 1000)

	vi.SetEnvPrefix("QM")
	vi.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vi.AutomaticEnv()

	vi.BindEnv("host", "HOST") //nolint:errcheck
	vi.BindEnv("port", "PORT") //nolint:errcheck

	return vi
}

func newViper(configPath, configFile string) *viper.Viper {
	vi := newViperWithDefaults()
	vi.SetConfigName(strings.TrimSuffix(configFile, filepath.Ext(configFile)))

	if configPath == "" {
		vi.AddConfigPath("./config")
	} else {
		vi.AddConfigPath(configPath)
	}
	return vi
}

// AbsolutePath returns the absolute path of the file relative to the
// config directory.
func (c *Config) AbsolutePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ConfigPath, p)
}

func (c *Config) rateLimiterEnable() bool {
	return c.RateLimiter.Rate > 0 && c.RateLimiter.Bucket > 0
}

// ShouldUseJSONLogs returns true if logs should be in JSON format.
func (c *Config) ShouldUseJSONLogs() bool {
	if c.LogFormat == "json" {
		return true
	}
	return c.LogFormat == "auto" && c.Serv.Production
}

// GetConfigName returns the config file name for the current environment.
func GetConfigName() string {
	goEnv := strings.TrimSpace(strings.ToLower(os.Getenv("GO_ENV")))

	switch goEnv {
	case "production", "prod":
		return "prod"
	case "staging", "stage":
		return "stage"
	case "testing", "test":
		return "test"
	case "development", "dev", "":
		return "dev"
	default:
		return goEnv
	}
}
