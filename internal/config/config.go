package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog" toml:"catalog"`
	Geocoder  GeocoderConfig  `yaml:"geocoder" toml:"geocoder"`
	Filter    FilterConfig    `yaml:"filter" toml:"filter"`
	Scheduler SchedulerConfig `yaml:"scheduler" toml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// CatalogConfig points at the remote course catalog
type CatalogConfig struct {
	URL     string   `yaml:"url" toml:"url"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// GeocoderConfig contains address lookup settings
type GeocoderConfig struct {
	Provider    string   `yaml:"provider" toml:"provider"` // "mapbox" or "static"
	Token       string   `yaml:"token,omitempty" toml:"token"`
	BaseURL     string   `yaml:"baseUrl,omitempty" toml:"base_url"`
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
	RateLimit   float64  `yaml:"rateLimit" toml:"rate_limit"` // requests per second
	Burst       int      `yaml:"burst" toml:"burst"`
	Concurrency int      `yaml:"concurrency" toml:"concurrency"`
}

// FilterConfig restricts which catalog entries become events
type FilterConfig struct {
	City         string `yaml:"city" toml:"city"`
	HorizonYears int    `yaml:"horizonYears" toml:"horizon_years"`
}

// SchedulerConfig contains catalog refresh settings. A zero interval
// disables the scheduled refresh.
type SchedulerConfig struct {
	Interval Duration `yaml:"interval" toml:"interval"`
}

// AuthConfig locates the credentials file protecting operator endpoints
type AuthConfig struct {
	File string `yaml:"file" toml:"file"`
}

// Duration accepts Go duration strings ("15m") in YAML and TOML
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Defaults
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultCatalogTimeout   = 30 * time.Second
	DefaultGeocoderProvider = "mapbox"
	DefaultGeocoderTimeout  = 10 * time.Second
	DefaultRateLimit        = 10.0
	DefaultBurst            = 5
	DefaultConcurrency      = 4
	DefaultCity             = "Berlin"
	DefaultHorizonYears     = 1
	DefaultInterval         = 6 * time.Hour
	DefaultAuthFile         = "auth.secret"
)

// Load reads the optional .env file and the config file at path, then
// applies environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	// seeded before decoding so an explicit zero interval survives
	cfg := Config{Scheduler: SchedulerConfig{Interval: Duration(DefaultInterval)}}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MAPBOX_TOKEN"); v != "" {
		cfg.Geocoder.Token = v
	}
	if v := os.Getenv("CATALOG_URL"); v != "" {
		cfg.Catalog.URL = v
	}
	if v := os.Getenv("AUTH_FILE"); v != "" {
		cfg.Auth.File = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = Duration(DefaultCatalogTimeout)
	}
	if cfg.Geocoder.Provider == "" {
		cfg.Geocoder.Provider = DefaultGeocoderProvider
	}
	if cfg.Geocoder.Timeout == 0 {
		cfg.Geocoder.Timeout = Duration(DefaultGeocoderTimeout)
	}
	if cfg.Geocoder.RateLimit == 0 {
		cfg.Geocoder.RateLimit = DefaultRateLimit
	}
	if cfg.Geocoder.Burst == 0 {
		cfg.Geocoder.Burst = DefaultBurst
	}
	if cfg.Geocoder.Concurrency == 0 {
		cfg.Geocoder.Concurrency = DefaultConcurrency
	}
	if cfg.Filter.City == "" {
		cfg.Filter.City = DefaultCity
	}
	if cfg.Filter.HorizonYears == 0 {
		cfg.Filter.HorizonYears = DefaultHorizonYears
	}
	if cfg.Auth.File == "" {
		cfg.Auth.File = DefaultAuthFile
	}
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Geocoder.Provider {
	case "mapbox", "static":
	default:
		return fmt.Errorf("unknown geocoder provider %q", c.Geocoder.Provider)
	}
	if c.Geocoder.RateLimit < 0 || c.Geocoder.Burst < 0 || c.Geocoder.Concurrency < 0 {
		return errors.New("geocoder limits must not be negative")
	}
	if c.Filter.HorizonYears < 0 {
		return errors.New("filter horizon must not be negative")
	}
	if c.Scheduler.Interval < 0 {
		return errors.New("scheduler interval must not be negative")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
