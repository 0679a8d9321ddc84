package tracker

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tracker configuration.
type Config struct {
	DBPath   string         `yaml:"db_path"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Fetch    FetchConfig    `yaml:"fetch"`
}

// ScheduleConfig controls the daily batch run.
type ScheduleConfig struct {
	// Hour is the local wall-clock hour of the daily run. Nil defaults to
	// 15; an explicit 0 schedules midnight.
	Hour   *int `yaml:"hour"`
	Minute int  `yaml:"minute"`

	// InterWatchDelay spaces out storefront fetches inside one run so a
	// large registry does not hammer the upstream.
	InterWatchDelay time.Duration `yaml:"inter_watch_delay"`
}

// FetchConfig controls storefront fetches.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "pricewatch.db"
	}
	if c.Schedule.Hour == nil || *c.Schedule.Hour < 0 || *c.Schedule.Hour > 23 {
		h := 15
		c.Schedule.Hour = &h
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		c.Schedule.Minute = 0
	}
	if c.Schedule.InterWatchDelay <= 0 {
		c.Schedule.InterWatchDelay = time.Second
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "pricewatch/1.0"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
