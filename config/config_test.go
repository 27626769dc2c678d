package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.NoError(cfg.Check())
	assert.Equal("jags", cfg.Engine)
	assert.Equal(3, cfg.Chains)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "gojags.yaml")

	text := `
engine: /opt/sampler/bin/jags
chains: 5
samples: 2000
monitor_addr: ":8000"
`
	assert.NoError(os.WriteFile(path, []byte(text), 0o644))

	cfg, err := Load(path)
	assert.NoError(err)
	assert.Equal("/opt/sampler/bin/jags", cfg.Engine)
	assert.Equal(5, cfg.Chains)
	assert.Equal(2000, cfg.Samples)
	assert.Equal(":8000", cfg.MonitorAddr)

	// Unset keys keep their defaults
	assert.Equal(1000, cfg.Burnin)
	assert.Equal(1, cfg.Thin)
}

func TestLoadErrors(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	// Named file must exist
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(err)

	// Unknown keys are rejected
	bad := filepath.Join(dir, "unknown.yaml")
	assert.NoError(os.WriteFile(bad, []byte("sampler: jags\n"), 0o644))
	_, err = Load(bad)
	assert.Error(err)

	// Invalid settings are rejected
	invalid := filepath.Join(dir, "invalid.yaml")
	assert.NoError(os.WriteFile(invalid, []byte("chains: 0\n"), 0o644))
	_, err = Load(invalid)
	assert.Error(err)
}

func TestApplyEnv(t *testing.T) {
	assert := assert.New(t)

	t.Setenv(EnvEngine, "/usr/local/bin/jags")
	t.Setenv(EnvSeed, "99")

	cfg := Default()
	assert.NoError(cfg.ApplyEnv())
	assert.Equal("/usr/local/bin/jags", cfg.Engine)
	assert.Equal(int64(99), cfg.Seed)

	t.Setenv(EnvSeed, "not-a-number")
	assert.Error(cfg.ApplyEnv())
}
