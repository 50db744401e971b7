package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Config is a structured representation of a volt config file.
type Config struct {
	// Client settings
	Address   string `yaml:"address"`
	UserToken string `yaml:"user_token"`

	// Deploy defaults
	DefaultDiskGB float64 `yaml:"default_disk_gb,omitempty"`
	DefaultLabel  string  `yaml:"default_label,omitempty"`
}

const (
	addressKey     = "VOLT_ADDR"
	tokenKey       = "VOLT_TOKEN"
	configPathKey  = "VOLT_CONFIG_FILE"
	defaultAddress = "https://marketplace.voltgpu.io"
	voltConfigFile = "config.yml"
)

var voltConfigDir = filepath.Join(os.Getenv("HOME"), ".volt")

// New reads environment and configuration files and returns the resulting
// volt configuration.
func New() (*Config, error) {
	// Set up default config before doing anything.
	config := Config{
		Address: defaultAddress,
	}

	r, err := findConfig()
	if err != nil {
		return nil, err
	}
	if r != nil {
		defer r.Close()

		d := yaml.NewDecoder(r)
		if err := d.Decode(&config); err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	// Environment wins over the file.
	if addr, ok := os.LookupEnv(addressKey); ok {
		config.Address = addr
	}
	if token, ok := os.LookupEnv(tokenKey); ok {
		config.UserToken = token
	}
	return &config, nil
}

// GetFilePath returns the path of the active config file.
func GetFilePath() string {
	if override, ok := os.LookupEnv(configPathKey); ok {
		return override
	}
	return filepath.Join(voltConfigDir, voltConfigFile)
}

// JournalPath returns where the race intent journal lives, beside the
// config file.
func JournalPath() string {
	return filepath.Join(filepath.Dir(GetFilePath()), "race.journal")
}

// ReadConfigFromFile loads a config from an explicit path.
func ReadConfigFromFile(path string) (*Config, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	config := Config{}
	d := yaml.NewDecoder(r)
	if err := d.Decode(&config); err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	return &config, nil
}

// WriteConfig persists a config, creating its directory if needed.
func WriteConfig(config *Config, filePath string) error {
	bytes, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	dirPath, _ := filepath.Split(filePath)
	if err := os.MkdirAll(dirPath, os.ModePerm); err != nil {
		return errors.WithStack(err)
	}

	return os.WriteFile(filePath, bytes, 0600)
}

func findConfig() (io.ReadCloser, error) {
	// Check the override first.
	if override, ok := os.LookupEnv(configPathKey); ok {
		return os.Open(override)
	}

	configPaths := []string{
		voltConfigDir,
		"/etc/volt",
	}

	for _, p := range configPaths {
		r, err := os.Open(filepath.Join(p, voltConfigFile))
		if os.IsNotExist(err) {
			continue
		}
		return r, errors.WithStack(err)
	}

	// No config file found; we'll just use defaults.
	return nil, nil
}
