package config

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvConfig names the environment variable pointing at a config file
const EnvConfig = "TRAVELRATES_CONFIG"

// Duration a time.Duration written as a Go duration string in YAML
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config every setting of the application
type Config struct {
	// Source is the file the config was read from, empty if only defaults apply
	Source string `yaml:"-"`

	Provider struct {
		URL     string   `yaml:"url"`
		Timeout Duration `yaml:"timeout"`
		// RateLimit requests per second allowed to reach the provider
		RateLimit float64 `yaml:"rate_limit"`
		Burst     int     `yaml:"burst"`
	} `yaml:"provider"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Refresh struct {
		StaleAfter    Duration `yaml:"stale_after"`
		CheckInterval Duration `yaml:"check_interval"`
		Tick          Duration `yaml:"tick"`
	} `yaml:"refresh"`

	Connectivity struct {
		ProbeInterval Duration `yaml:"probe_interval"`
		ProbeTimeout  Duration `yaml:"probe_timeout"`
		Offline       bool     `yaml:"offline"`
	} `yaml:"connectivity"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file sets a value
func Default() Config {
	var c Config
	c.Provider.URL = "https://open.er-api.com"
	c.Provider.Timeout = Duration(10 * time.Second)
	c.Provider.RateLimit = 1
	c.Provider.Burst = 3
	c.Storage.Path = DefaultStoragePath()
	c.Refresh.StaleAfter = Duration(24 * time.Hour)
	c.Refresh.CheckInterval = Duration(time.Hour)
	c.Refresh.Tick = Duration(time.Second)
	c.Connectivity.ProbeInterval = Duration(30 * time.Second)
	c.Connectivity.ProbeTimeout = Duration(3 * time.Second)
	c.Log.Level = "warn"
	c.Log.Format = "logfmt"
	return c
}

// DefaultStoragePath places the database in the user cache directory
func DefaultStoragePath() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "travelrates", "travelrates.db")
	}
	return "travelrates.db"
}

// Load reads the config at path, or the first file found in the standard locations
// when path is empty. Settings missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = findConfig()
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("reading config [%v]: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config [%v]: %w", path, err)
	}
	cfg.Source = path

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config [%v]: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings for values the application cannot run with
func (c Config) Validate() error {
	var problems []string
	if c.Provider.URL == "" {
		problems = append(problems, "provider.url is empty")
	}
	if c.Provider.Timeout <= 0 {
		problems = append(problems, "provider.timeout must be positive")
	}
	if c.Provider.RateLimit <= 0 {
		problems = append(problems, "provider.rate_limit must be positive")
	}
	if c.Provider.Burst < 1 {
		problems = append(problems, "provider.burst must be at least 1")
	}
	if c.Storage.Path == "" {
		problems = append(problems, "storage.path is empty")
	}
	if c.Refresh.StaleAfter <= 0 {
		problems = append(problems, "refresh.stale_after must be positive")
	}
	if c.Refresh.CheckInterval <= 0 {
		problems = append(problems, "refresh.check_interval must be positive")
	}
	if c.Refresh.Tick <= 0 {
		problems = append(problems, "refresh.tick must be positive")
	}
	if c.Connectivity.ProbeInterval <= 0 || c.Connectivity.ProbeTimeout <= 0 {
		problems = append(problems, "connectivity probe interval and timeout must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "none":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error, none", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "logfmt", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not one of logfmt, json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %v", strings.Join(problems, "; "))
	}
	return nil
}

// findConfig returns the first existing file among the standard locations
func findConfig() string {
	var candidates []string
	if p := os.Getenv(EnvConfig); p != "" {
		candidates = append(candidates, p)
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "travelrates.yaml"))
	}
	if dir := os.Getenv("HOME"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, ".travelrates.yaml"))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
