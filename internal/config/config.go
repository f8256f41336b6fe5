package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("rest-gateway version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Logging        LoggingConfig   `mapstructure:"logging"`
	EndpointConfig EndpointConfig  `mapstructure:"endpoint"`
	Transport      TransportConfig `mapstructure:"transport"`
	OpenAPIFile    string          `mapstructure:"openapi_file"`
	RequestsFile   string          `mapstructure:"requests_file"`
}

// AuthType represents the type of authentication to use
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeOAuth2 AuthType = "oauth2"
)

// EndpointConfig describes the downstream service relative paths resolve against.
type EndpointConfig struct {
	BaseURL    string            `json:"base_url" mapstructure:"base_url"`
	AuthType   AuthType          `json:"auth_type" mapstructure:"auth_type"`
	AuthConfig map[string]string `json:"auth_config" mapstructure:"auth_config"`
	Headers    map[string]string `json:"headers" mapstructure:"headers"`
}

// TransportConfig tunes the shared HTTP client. Zero values mean library defaults.
type TransportConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	InsecureSkipVerify  bool          `mapstructure:"insecure_skip_verify"`
	RateLimit           float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst           int           `mapstructure:"rate_burst"`
	RequestIDHeader     string        `mapstructure:"request_id_header"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// Default returns the configuration used when no file, flag or env var overrides it.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:             "warn",
			Format:            "console",
			DisableStacktrace: true,
		},
		EndpointConfig: EndpointConfig{
			AuthType: AuthTypeNone,
		},
		Transport: TransportConfig{
			Timeout:             30 * time.Second,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// InitFlags registers the config-backed flags on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.String("base-url", "", "Base URL relative paths are resolved against")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.Duration("timeout", 0, "Request timeout")
	fs.String("openapi-file", "", "Path to an OpenAPI/Swagger document")
	fs.String("requests-file", "", "Path to a YAML file of named requests")
}

// Load reads configuration from defaults, the optional config file, GATEWAY_* env vars
// and the flags in fs, in increasing order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rest-gateway")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the transport cannot work with.
func (c *Config) Validate() error {
	switch c.EndpointConfig.AuthType {
	case "", AuthTypeNone, AuthTypeBasic, AuthTypeBearer, AuthTypeAPIKey, AuthTypeOAuth2:
	default:
		return fmt.Errorf("unsupported endpoint.auth_type %q", c.EndpointConfig.AuthType)
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must not be negative")
	}
	if c.Transport.RateLimit < 0 {
		return fmt.Errorf("transport.rate_limit must not be negative")
	}
	return nil
}

// setDefaults registers every scalar key, which also lets AutomaticEnv see it on Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.disable_stacktrace", d.Logging.DisableStacktrace)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.append_to_file", d.Logging.AppendToFile)
	v.SetDefault("logging.disable_console", d.Logging.DisableConsole)
	v.SetDefault("endpoint.base_url", d.EndpointConfig.BaseURL)
	v.SetDefault("endpoint.auth_type", string(d.EndpointConfig.AuthType))
	v.SetDefault("transport.timeout", d.Transport.Timeout)
	v.SetDefault("transport.max_idle_conns", d.Transport.MaxIdleConns)
	v.SetDefault("transport.max_idle_conns_per_host", d.Transport.MaxIdleConnsPerHost)
	v.SetDefault("transport.idle_conn_timeout", d.Transport.IdleConnTimeout)
	v.SetDefault("transport.insecure_skip_verify", d.Transport.InsecureSkipVerify)
	v.SetDefault("transport.rate_limit", d.Transport.RateLimit)
	v.SetDefault("transport.rate_burst", d.Transport.RateBurst)
	v.SetDefault("transport.request_id_header", d.Transport.RequestIDHeader)
	v.SetDefault("openapi_file", d.OpenAPIFile)
	v.SetDefault("requests_file", d.RequestsFile)
}

// bindFlags maps CLI flag names onto their nested config keys.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	keys := map[string]string{
		"config":        "config",
		"base-url":      "endpoint.base_url",
		"log-level":     "logging.level",
		"timeout":       "transport.timeout",
		"openapi-file":  "openapi_file",
		"requests-file": "requests_file",
	}
	for name, key := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
