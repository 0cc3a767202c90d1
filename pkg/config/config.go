package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the hefest-config.yaml file.
type Config struct {
	ConfigVersion string       `yaml:"version"`
	Scan          ConfigScan   `yaml:"scan"`
	Report        ConfigReport `yaml:"report"`
	Log           ConfigLog    `yaml:"log"`
	Rules         string       `yaml:"rules"`
}

type ConfigScan struct {
	Ports         string `yaml:"ports"`
	Timeout       string `yaml:"timeout"`
	BannerTimeout string `yaml:"banner_timeout"`
	BannerSize    int    `yaml:"banner_size"`
	Concurrency   int    `yaml:"concurrency"`
	Proxy         string `yaml:"proxy"`
}

type ConfigReport struct {
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"`
	// Database is a sqlite file or a postgres:// DSN. Empty disables it.
	Database string `yaml:"database"`
}

type ConfigLog struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

const hefestConfigFilename = "hefest-config.yaml"
const ConfigVersion = "1.0"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ConfigVersion: ConfigVersion,
		Scan: ConfigScan{
			Ports:         DefaultPorts,
			Timeout:       DefaultTimeout,
			BannerTimeout: DefaultBannerTimeout,
			BannerSize:    DefaultBannerSize,
			Concurrency:   DefaultConcurrency,
		},
		Report: ConfigReport{
			OutputDir: DefaultOutputDir,
			Formats:   append([]string(nil), DefaultFormats...),
		},
		Log: ConfigLog{
			File:  DefaultLogFile,
			Level: DefaultLogLevel,
		},
	}
}

// New reads the configuration at path, writing the defaults there first
// when the file does not exist. An empty path means the per-user file.
func New(path string) (*Config, error) {
	if path == "" {
		p, err := defaultConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteConfiguration(path, Default()); err != nil {
			return nil, err
		}
	}
	c, err := ReadConfiguration(path)
	if err != nil {
		return nil, err
	}
	c.fill()
	return c, nil
}

// fill replaces zero values with defaults so a partial file still works.
func (c *Config) fill() {
	d := Default()
	if c.ConfigVersion == "" {
		c.ConfigVersion = d.ConfigVersion
	}
	if c.Scan.Ports == "" {
		c.Scan.Ports = d.Scan.Ports
	}
	if c.Scan.Timeout == "" {
		c.Scan.Timeout = d.Scan.Timeout
	}
	if c.Scan.BannerTimeout == "" {
		c.Scan.BannerTimeout = d.Scan.BannerTimeout
	}
	if c.Scan.BannerSize <= 0 {
		c.Scan.BannerSize = d.Scan.BannerSize
	}
	if c.Scan.Concurrency <= 0 {
		c.Scan.Concurrency = d.Scan.Concurrency
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = d.Report.OutputDir
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = d.Report.Formats
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

func defaultConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not get home directory")
	}
	return filepath.Join(homeDir, ".config", "hefest", hefestConfigFilename), nil
}

// ReadConfiguration reads the hefest configuration file from disk.
func ReadConfiguration(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open config file")
	}
	defer file.Close()

	config := &Config{}
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, errors.Wrapf(err, "could not parse config file %s", path)
	}
	return config, nil
}

// WriteConfiguration writes config to path, creating parent directories.
func WriteConfiguration(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "could not create config directory")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "could not write config file")
	}
	return nil
}
