package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

type Defaults struct {
	Image               string `yaml:"image"`
	Type                string `yaml:"type"` // "container" or "vm"
	CPULimit            int    `yaml:"cpu_limit"`
	MemLimit            string `yaml:"mem_limit"` // human-readable, e.g. "512MiB"
	CommandTimeoutMs    int    `yaml:"command_timeout_ms"`
	MaxCommandTimeoutMs int    `yaml:"max_command_timeout_ms"`
	ReadyTimeoutMs      int    `yaml:"ready_timeout_ms"`
	PollIntervalMs      int    `yaml:"poll_interval_ms"`
	ShiftOwnership      bool   `yaml:"shift_ownership"`
}

type ReaperConfig struct {
	MaxAgeSeconds   int `yaml:"max_age_seconds"` // 0 disables reaping
	IntervalSeconds int `yaml:"interval_seconds"`
}

type Config struct {
	Listen         string       `yaml:"listen"`
	APIKey         string       `yaml:"api_key"`
	IncusBin       string       `yaml:"incus_bin"`
	Remote         string       `yaml:"remote"`
	Project        string       `yaml:"project"`
	IncusTimeoutMs int          `yaml:"incus_timeout_ms"`
	Defaults       Defaults     `yaml:"defaults"`
	Reaper         ReaperConfig `yaml:"reaper"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:         "127.0.0.1:8080",
		IncusBin:       "incus",
		Remote:         "images",
		IncusTimeoutMs: 60000,
		Defaults: Defaults{
			Image:               "alpine/3.21",
			Type:                "container",
			CPULimit:            1,
			MemLimit:            "512MiB",
			CommandTimeoutMs:    30000,
			MaxCommandTimeoutMs: 120000,
			ReadyTimeoutMs:      30000,
			PollIntervalMs:      500,
		},
		Reaper: ReaperConfig{
			MaxAgeSeconds:   0,
			IntervalSeconds: 30,
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if _, err := units.RAMInBytes(cfg.Defaults.MemLimit); err != nil {
		return nil, fmt.Errorf("invalid mem_limit %q: %w", cfg.Defaults.MemLimit, err)
	}
	if cfg.Defaults.Type != "container" && cfg.Defaults.Type != "vm" {
		return nil, fmt.Errorf("invalid default type %q (want container or vm)", cfg.Defaults.Type)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KASTELL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("KASTELL_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("KASTELL_INCUS_BIN"); v != "" {
		cfg.IncusBin = v
	}
	if v := os.Getenv("KASTELL_REMOTE"); v != "" {
		cfg.Remote = v
	}
	if v := os.Getenv("KASTELL_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("KASTELL_DEFAULT_IMAGE"); v != "" {
		cfg.Defaults.Image = v
	}
	if v := os.Getenv("KASTELL_DEFAULT_TYPE"); v != "" {
		cfg.Defaults.Type = v
	}
	if v := os.Getenv("KASTELL_CPU_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.CPULimit = n
		}
	}
	if v := os.Getenv("KASTELL_MEM_LIMIT"); v != "" {
		cfg.Defaults.MemLimit = v
	}
	if v := os.Getenv("KASTELL_COMMAND_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.CommandTimeoutMs = n
		}
	}
	if v := os.Getenv("KASTELL_MAX_COMMAND_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.MaxCommandTimeoutMs = n
		}
	}
	if v := os.Getenv("KASTELL_REAPER_MAX_AGE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reaper.MaxAgeSeconds = n
		}
	}
}
