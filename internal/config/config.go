package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Limits are the resource bounds applied to every sandbox, pooled or on-demand.
type Limits struct {
	CPULimit    float64 `yaml:"cpu_limit"`    // CPUs (0.5 = half a core)
	MemLimit    string  `yaml:"mem_limit"`    // human readable, e.g. "128m"
	PidsLimit   int     `yaml:"pids_limit"`
	NetworkMode string  `yaml:"network_mode"` // "none" disables networking
}

// MemBytes parses MemLimit into bytes.
func (l Limits) MemBytes() (int64, error) {
	n, err := units.RAMInBytes(l.MemLimit)
	if err != nil {
		return 0, fmt.Errorf("parsing mem_limit %q: %w", l.MemLimit, err)
	}
	return n, nil
}

type Config struct {
	Listen                string `yaml:"listen"`
	APIKey                string `yaml:"api_key"`
	Image                 string `yaml:"image"`
	PoolSize              int    `yaml:"pool_size"`
	SessionTimeoutSeconds int    `yaml:"session_timeout_seconds"`
	SweepIntervalSeconds  int    `yaml:"sweep_interval_seconds"`
	Limits                Limits `yaml:"limits"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:                "127.0.0.1:8080",
		Image:                 "python:3.13-slim",
		PoolSize:              1,
		SessionTimeoutSeconds: 60,
		SweepIntervalSeconds:  5,
		Limits: Limits{
			CPULimit:    0.5,
			MemLimit:    "128m",
			PidsLimit:   128,
			NetworkMode: "none",
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must be non-negative")
	}
	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("session_timeout_seconds must be positive")
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("sweep_interval_seconds must be positive")
	}
	if _, err := c.Limits.MemBytes(); err != nil {
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KAPSEL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("KAPSEL_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("KAPSEL_IMAGE"); v != "" {
		cfg.Image = v
	}
	if v := os.Getenv("KAPSEL_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("KAPSEL_SESSION_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionTimeoutSeconds = n
		}
	}
	if v := os.Getenv("KAPSEL_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SweepIntervalSeconds = n
		}
	}
	if v := os.Getenv("KAPSEL_CPU_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.CPULimit = f
		}
	}
	if v := os.Getenv("KAPSEL_MEM_LIMIT"); v != "" {
		cfg.Limits.MemLimit = v
	}
	if v := os.Getenv("KAPSEL_PIDS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.PidsLimit = n
		}
	}
	if v := os.Getenv("KAPSEL_NETWORK_MODE"); v != "" {
		cfg.Limits.NetworkMode = v
	}
}
