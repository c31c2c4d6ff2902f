package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".apiscout/config.yaml"

type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SpecConfig struct {
	Path string `yaml:"path"`
}

type MatchConfig struct {
	TopK int `yaml:"top_k"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Spec   SpecConfig   `yaml:"spec"`
	Match  MatchConfig  `yaml:"match"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Store.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.Store.Path = filepath.Join(home, ".apiscout", "apiscout.db")
	}
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://llm:11434"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "mistral"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.Spec.Path == "" {
		c.Spec.Path = "openapi.json"
	}
	if c.Match.TopK == 0 {
		c.Match.TopK = 10
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Spec.Path) == "" {
		return errors.New("spec.path cannot be empty")
	}
	if c.Match.TopK < 1 {
		return errors.New("match.top_k must be at least 1")
	}
	if c.LLM.TimeoutSeconds < 1 {
		return errors.New("llm.timeout_seconds must be at least 1")
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.LLM.BaseURL, "APISCOUT_LLM_BASE_URL")
	setString(&c.LLM.Model, "APISCOUT_LLM_MODEL")
	setInt(&c.LLM.TimeoutSeconds, "APISCOUT_LLM_TIMEOUT_SECONDS")
	setString(&c.Spec.Path, "APISCOUT_SPEC_PATH")
	setInt(&c.Match.TopK, "APISCOUT_MATCH_TOP_K")
	setString(&c.Server.Host, "APISCOUT_SERVER_HOST")
	setInt(&c.Server.Port, "APISCOUT_SERVER_PORT")
	setString(&c.Store.Path, "APISCOUT_STORE_PATH")
	setString(&c.Log.Level, "APISCOUT_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
