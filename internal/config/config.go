package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderStatic    = "static"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		PublicURL   string   `yaml:"publicUrl"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Game struct {
		TTL               string `yaml:"ttl"`
		FeedbackDelay     string `yaml:"feedbackDelay"`
		ServerScoringOnly bool   `yaml:"serverScoringOnly"`
		RateLimit         struct {
			Enabled   bool `yaml:"enabled"`
			MaxPerDay int  `yaml:"maxPerDay"`
		} `yaml:"rateLimit"`
	} `yaml:"game"`
	AI struct {
		Provider      string `yaml:"provider"`
		Model         string `yaml:"model"`
		APIKey        string `yaml:"apiKey"`
		Timeout       string `yaml:"timeout"`
		QuestionCount int    `yaml:"questionCount"`
	} `yaml:"ai"`
}

// Load reads YAML config from path, then applies environment overrides.
// Variables from a .env file in the working directory are loaded first if present.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("APP_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case ProviderOpenAI:
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			c.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.Server.PublicURL != "" && !strings.Contains(c.Server.PublicURL, "://") {
		c.Server.PublicURL = "http://" + c.Server.PublicURL
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
