package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Sync      SyncConfig      `yaml:"sync"`
	Insights  InsightsConfig  `yaml:"insights"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ClientConfig struct {
	UserID string `yaml:"user_id"`
	// Endpoints are candidate backend base URLs, probed in order.
	Endpoints []string `yaml:"endpoints"`
	APIKey    string   `yaml:"api_key"`
}

type SyncConfig struct {
	CooldownMinutes int `yaml:"cooldown_minutes"`
	WindowDays      int `yaml:"window_days"`
	AutoIntervalMin int `yaml:"auto_interval_minutes"`
}

type InsightsConfig struct {
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

type StoreConfig struct {
	// Path to the on-device SQLite health store.
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix GLUCOSYNC_ and underscore-separated
// paths:
//
//	GLUCOSYNC_USER_ID, GLUCOSYNC_ENDPOINTS (comma-separated),
//	GLUCOSYNC_API_KEY, GLUCOSYNC_STORE_PATH,
//	GLUCOSYNC_SYNC_COOLDOWN_MINUTES, GLUCOSYNC_SYNC_WINDOW_DAYS,
//	GLUCOSYNC_SERVER_HOST, GLUCOSYNC_SERVER_PORT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GLUCOSYNC_USER_ID"); v != "" {
		cfg.Client.UserID = v
	}
	if v := os.Getenv("GLUCOSYNC_ENDPOINTS"); v != "" {
		cfg.Client.Endpoints = cfg.Client.Endpoints[:0]
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Client.Endpoints = append(cfg.Client.Endpoints, p)
			}
		}
	}
	if v := os.Getenv("GLUCOSYNC_API_KEY"); v != "" {
		cfg.Client.APIKey = v
	}
	if v := os.Getenv("GLUCOSYNC_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("GLUCOSYNC_SYNC_COOLDOWN_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.CooldownMinutes = n
		}
	}
	if v := os.Getenv("GLUCOSYNC_SYNC_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.WindowDays = n
		}
	}
	if v := os.Getenv("GLUCOSYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GLUCOSYNC_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Sync.CooldownMinutes == 0 {
		c.Sync.CooldownMinutes = 10
	}
	if c.Sync.WindowDays == 0 {
		c.Sync.WindowDays = 7
	}
	if c.Sync.AutoIntervalMin == 0 {
		c.Sync.AutoIntervalMin = c.Sync.CooldownMinutes
	}
	if c.Insights.CacheTTLMinutes == 0 {
		c.Insights.CacheTTLMinutes = 30
	}
}

func (c *Config) validate() error {
	if c.Client.UserID == "" {
		return fmt.Errorf("client.user_id is required")
	}
	if len(c.Client.Endpoints) == 0 {
		return fmt.Errorf("client.endpoints is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Sync.AutoIntervalMin < c.Sync.CooldownMinutes {
		return fmt.Errorf("sync.auto_interval_minutes must be >= sync.cooldown_minutes")
	}
	return nil
}
