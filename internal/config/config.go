// Package config resolves the global judge configuration and per-task manifests.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	appErr "grader/pkg/errors"
)

const (
	configFileName = "config.json"

	defaultMaxWorker = 1
	defaultHTTPAddr  = "0.0.0.0:3000"
)

// LanguageProfile describes how to compile and run one language.
// Compile and Run are command templates with literal {source_file},
// {output} and {source} placeholders.
type LanguageProfile struct {
	Ext     string `json:"ext"`
	Compile string `json:"compile"`
	Run     string `json:"run"`
}

// JudgeConfig holds judge worker settings.
type JudgeConfig struct {
	MaxWorker int `json:"max_worker"`
}

// Config is the global configuration loaded from config.json at the
// working directory root, with environment overrides applied.
type Config struct {
	Language map[string]LanguageProfile `json:"language"`
	Judge    JudgeConfig                `json:"judge"`

	// Resolved from environment, not from config.json.
	PostgresURL string `json:"-"`
	RabbitMQURL string `json:"-"`
	AuthToken   string `json:"-"`
	HTTPAddr    string `json:"-"`
}

// Load reads config.json under root and applies environment overrides.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, configFileName))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "read config file failed")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidFormat, "parse config file failed")
	}
	cfg.applyEnv()
	if cfg.Judge.MaxWorker <= 0 {
		cfg.Judge.MaxWorker = defaultMaxWorker
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if raw := os.Getenv("MAX_WORKER"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			c.Judge.MaxWorker = n
		}
	}
	c.PostgresURL = os.Getenv("POSTGRES_URL")
	c.RabbitMQURL = os.Getenv("RBMQ_URL")
	c.AuthToken = os.Getenv("AUTH_TOKEN")
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
}

// LanguageProfile resolves the profile for a submission language.
func (c *Config) LanguageProfile(language string) (LanguageProfile, error) {
	profile, ok := c.Language[language]
	if !ok {
		return LanguageProfile{}, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", language)
	}
	return profile, nil
}
