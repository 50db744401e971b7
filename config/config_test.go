package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	written := &Config{
		Address:       "https://marketplace.example.com",
		UserToken:     "tok_123",
		DefaultDiskGB: 64,
		DefaultLabel:  "volt",
	}
	require.NoError(t, WriteConfig(written, path))

	read, err := ReadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, written, read)
}

func TestNewHonorsEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, WriteConfig(&Config{
		Address:   "https://from-file.example.com",
		UserToken: "tok_file",
	}, path))

	t.Setenv(configPathKey, path)
	t.Setenv(addressKey, "https://from-env.example.com")
	os.Unsetenv(tokenKey)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", cfg.Address)
	assert.Equal(t, "tok_file", cfg.UserToken)
}

func TestJournalPathBesideConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configPathKey, filepath.Join(dir, "config.yml"))
	assert.Equal(t, filepath.Join(dir, "race.journal"), JournalPath())
}
