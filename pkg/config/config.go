package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the datumkit configuration
type Config struct {
	DataDir      string   `yaml:"data_dir"`
	KeyWidth     int      `yaml:"key_width"`
	InfoInterval int      `yaml:"info_interval"`
	Overwrite    bool     `yaml:"overwrite"`
	StrictSchema bool     `yaml:"strict_schema"`
	Seed         uint64   `yaml:"seed"`
	Suffixes     Suffixes `yaml:"suffixes"`
	Storage      Storage  `yaml:"storage"`
	Logging      Logging  `yaml:"logging"`
	Metrics      Metrics  `yaml:"metrics"`
	Serve        Serve    `yaml:"serve"`
}

// Suffixes name the output stores derived from an input store path
type Suffixes struct {
	Train    string `yaml:"train"`
	Test     string `yaml:"test"`
	Shuffled string `yaml:"shuffled"`
	Input    string `yaml:"input"`
	Target   string `yaml:"target"`
}

// Storage contains storage engine tuning
type Storage struct {
	Compression  string `yaml:"compression"`
	CacheSizeMB  int64  `yaml:"cache_size_mb"`
	Sync         bool   `yaml:"sync"`
	MaxOpenFiles int    `yaml:"max_open_files"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Metrics contains metrics output configuration
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Serve contains the record browser configuration
type Serve struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Verbosity maps the logging level to a klog verbosity
func (l Logging) Verbosity() int {
	switch l.Level {
	case "debug":
		return 2
	case "trace":
		return 4
	default:
		return 0
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:      ".",
		KeyWidth:     8,
		InfoInterval: 5000,
		Suffixes: Suffixes{
			Train:    "_train",
			Test:     "_test",
			Shuffled: "_shuffled",
			Input:    "_input",
			Target:   "_target",
		},
		Storage: Storage{
			Compression:  "snappy",
			CacheSizeMB:  64,
			MaxOpenFiles: 1000,
		},
		Logging: Logging{
			Level: "info",
		},
		Serve: Serve{
			Bind: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Validate rejects values no tool can run with
func (c *Config) Validate() error {
	if c.KeyWidth < 1 || c.KeyWidth > 18 {
		return errors.Newf("key_width must be between 1 and 18, got %d", c.KeyWidth)
	}
	if c.InfoInterval < 1 {
		return errors.Newf("info_interval must be positive, got %d", c.InfoInterval)
	}
	switch c.Storage.Compression {
	case "", "none", "snappy", "zstd":
	default:
		return errors.Newf("unknown storage.compression %q", c.Storage.Compression)
	}
	switch c.Logging.Level {
	case "", "info", "debug", "trace":
	default:
		return errors.Newf("unknown logging.level %q", c.Logging.Level)
	}
	s := c.Suffixes
	names := map[string]string{
		"train": s.Train, "test": s.Test, "shuffled": s.Shuffled,
		"input": s.Input, "target": s.Target,
	}
	for name, v := range names {
		if v == "" {
			return errors.Newf("suffixes.%s must not be empty", name)
		}
	}
	if s.Train == s.Test {
		return errors.Newf("suffixes.train and suffixes.test are both %q", s.Train)
	}
	if s.Input == s.Target {
		return errors.Newf("suffixes.input and suffixes.target are both %q", s.Input)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return errors.Newf("serve.port out of range: %d", c.Serve.Port)
	}
	return nil
}

// ResolvePath joins a relative store path onto the data directory
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// LoadConfig loads configuration from the specified path. Fields absent from
// the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// 0600: the file may carry the browser API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "failed to generate secure key")
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated browser
// API key when withAPIKey is set.
func BootstrapConfig(configPath string, dataDir string, withAPIKey bool) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	if withAPIKey {
		key, err := GenerateSecureKey(32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate API key")
		}
		config.Serve.APIKey = key
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, errors.Wrap(err, "failed to save bootstrap config")
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./datum.yaml"
	}

	return filepath.Join(homeDir, ".config", "datum", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
