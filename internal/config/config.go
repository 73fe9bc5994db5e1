package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Packs struct {
		TTL string `yaml:"ttl"`
	} `yaml:"packs"`
	Game struct {
		BasePoints  int   `yaml:"basePoints"`
		SpeedMax    int   `yaml:"speedMax"`
		FirstBonus  int   `yaml:"firstBonus"`
		SpeedCapMs  int64 `yaml:"speedCapMs"`
		TimePerQSec int   `yaml:"timePerQSec"`
	} `yaml:"game"`
	Solo struct {
		TopN          int    `yaml:"topN"`
		MaxEntries    int    `yaml:"maxEntries"`
		Retention     string `yaml:"retention"`
		AdminPasscode string `yaml:"adminPasscode"`
	} `yaml:"solo"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
