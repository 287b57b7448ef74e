package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// server
	ListenPort string `yaml:"listenPort"`
	GinMode    string `yaml:"ginMode"`

	// remote generation api
	ApiBase     string `yaml:"apiBase"`
	ApiToken    string `yaml:"apiToken"`
	HttpTimeout int32  `yaml:"httpTimeout"` // second

	// job polling
	PollInterval int32 `yaml:"pollInterval"` // second
	WaitCeiling  int32 `yaml:"waitCeiling"`  // second, per job upper bound

	// generation
	MaxOutputs int `yaml:"maxOutputs"`

	// db
	DbSqlite string `yaml:"dbSqlite"`

	// settings persistence
	SettingsFile string `yaml:"settingsFile"`

	// output
	ImageOutputDir string `yaml:"imageOutputDir"`

	// log
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenPort:     "8000",
		GinMode:        "release",
		ApiBase:        "https://api.replicate.com",
		ApiToken:       os.Getenv(API_TOKEN),
		HttpTimeout:    60,
		PollInterval:   1,
		WaitCeiling:    300,
		MaxOutputs:     4,
		DbSqlite:       "./sqlite3",
		SettingsFile:   "./settings.yaml",
		ImageOutputDir: "./images",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// InitConfig builds config from defaults, overlays the optional yaml file,
// then env. A missing file is fine, a malformed one is an error and the
// returned config falls back to defaults.
func InitConfig(fn string) (*Config, error) {
	cfg := DefaultConfig()
	if fn != "" {
		data, err := os.ReadFile(fn)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return DefaultConfig(), fmt.Errorf("config file %s malformed: %v", fn, err)
			}
		} else if !os.IsNotExist(err) {
			return DefaultConfig(), fmt.Errorf("config file %s unreadable: %v", fn, err)
		}
	}
	if token := os.Getenv(API_TOKEN); token != "" {
		cfg.ApiToken = token
	}
	return cfg, nil
}
