// Package config loads run defaults from a YAML file and the environment.
// Precedence is flags > environment > file > built-in defaults; the flag
// layer lives in the cmd package.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Environment variables recognized after .env loading
const (
	EnvEngine  = "GOJAGS_ENGINE"
	EnvMonitor = "GOJAGS_MONITOR_ADDR"
	EnvSeed    = "GOJAGS_SEED"
)

// Config holds the run defaults
type Config struct {
	Engine      string `yaml:"engine"`       // engine binary (name or path)
	Chains      int    `yaml:"chains"`       // parallel chain count
	Burnin      int    `yaml:"burnin"`       // burn-in iterations
	Samples     int    `yaml:"samples"`      // stored draws per chain
	Thin        int    `yaml:"thin"`         // thinning interval
	Seed        int64  `yaml:"seed"`         // master seed for generated inits
	MonitorAddr string `yaml:"monitor_addr"` // progress endpoint, empty disables
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Engine:  "jags",
		Chains:  3,
		Burnin:  1000,
		Samples: 10000,
		Thin:    1,
		Seed:    1,
	}
}

// DefaultPath is where Load looks when no config file is named
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gojags.yaml")
}

// Load reads the YAML file over the defaults. A missing file at the default
// path is fine; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	required := len(path) > 0
	if !required {
		path = DefaultPath()
	}
	if len(path) < 1 {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "Could not READ config from %s", path)
	}

	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE config %s", path)
	}

	if err := cfg.Check(); err != nil {
		return nil, errors.Wrapf(err, "Config %s is not valid", path)
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables, loading a .env file first if one
// is present in the working directory
func (c *Config) ApplyEnv() error {
	// Missing .env is the normal case
	_ = godotenv.Load()

	if v := os.Getenv(EnvEngine); len(v) > 0 {
		c.Engine = v
	}
	if v := os.Getenv(EnvMonitor); len(v) > 0 {
		c.MonitorAddr = v
	}
	if v := os.Getenv(EnvSeed); len(v) > 0 {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "Bad %s value %q", EnvSeed, v)
		}
		c.Seed = seed
	}

	return c.Check()
}

// Check returns an error if any setting is unusable
func (c *Config) Check() error {
	if len(c.Engine) < 1 {
		return errors.New("No engine binary configured")
	}
	if c.Chains < 1 {
		return errors.Errorf("Invalid chain count %d", c.Chains)
	}
	if c.Burnin < 0 {
		return errors.Errorf("Invalid burn-in %d", c.Burnin)
	}
	if c.Samples < 1 {
		return errors.Errorf("Invalid sample count %d", c.Samples)
	}
	if c.Thin < 1 {
		return errors.Errorf("Invalid thinning interval %d", c.Thin)
	}
	return nil
}
