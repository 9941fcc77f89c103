// Package config loads shodiff settings from an optional YAML file.
// Missing keys fall back to struct-tag defaults; string values may reference
// environment variables ($VAR / ${VAR}).
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/corey/shodiff/internal/ports"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

type (
	// Config is the full runtime configuration.
	Config struct {
		Shodan ShodanCfg `yaml:"shodan"`
		Store  StoreCfg  `yaml:"store"`
		Log    LogCfg    `yaml:"log"`
	}

	// ShodanCfg controls the search client.
	ShodanCfg struct {
		BaseURL     string        `yaml:"base_url" default:"https://api.shodan.io"`
		TokenEnv    string        `yaml:"token_env" default:"SHODAN_API_TOKEN"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		Concurrency int           `yaml:"concurrency" default:"4"`
	}

	// StoreCfg selects the baseline store backend. An empty Path means the
	// driver's default file under .shodiff/.
	StoreCfg struct {
		Driver string `yaml:"driver" default:"bolt"`
		Path   string `yaml:"path"`
	}

	// LogCfg controls logging. Files enables per-level log files under
	// .shodiff/log/, or under Dir when set.
	LogCfg struct {
		Level string `yaml:"level" default:"warn"`
		Files bool   `yaml:"files"`
		Dir   string `yaml:"dir"`
	}
)

// Default returns a Config holding only default values.
func Default() *Config {
	cfg := new(Config)
	if err := defaults.Set(cfg); err != nil {
		// Tags are static; a failure here is a programming error.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// expand env variables, cfg is a pointer
	// so we have to call elem on the reflect value
	expandConfig(reflect.ValueOf(cfg).Elem())

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverBolt, DriverSQLite:
	default:
		return fmt.Errorf("store.driver %q: want %q or %q", c.Store.Driver, DriverBolt, DriverSQLite)
	}
	if c.Shodan.Concurrency < 1 {
		return fmt.Errorf("shodan.concurrency must be >= 1, got %d", c.Shodan.Concurrency)
	}
	if c.Shodan.Timeout <= 0 {
		return fmt.Errorf("shodan.timeout must be positive, got %s", c.Shodan.Timeout)
	}
	if strings.TrimSpace(c.Shodan.TokenEnv) == "" {
		return fmt.Errorf("shodan.token_env must name an environment variable")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	return nil
}

// APIKey returns the search API credential from the configured environment
// variable, or ports.ErrMissingCredential.
func (c *Config) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(c.Shodan.TokenEnv))
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ports.ErrMissingCredential, c.Shodan.TokenEnv)
	}
	return key, nil
}

// expandConfig expands environment variables in config strings
func expandConfig(reflected reflect.Value) {
	for i := 0; i < reflected.NumField(); i++ {
		f := reflected.Field(i)
		// process sub configs
		if f.Kind() == reflect.Struct {
			expandConfig(f)
		} else if f.Kind() == reflect.String {
			f.SetString(os.ExpandEnv(f.String()))
		}
	}
}
