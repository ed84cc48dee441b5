package testutil

import (
	"github.com/jhartig/kapsel/internal/config"
)

// TestConfig returns a Config with sensible test defaults.
func TestConfig() *config.Config {
	return &config.Config{
		Listen:                "127.0.0.1:0",
		Image:                 "python:3.13-slim",
		PoolSize:              1,
		SessionTimeoutSeconds: 60,
		SweepIntervalSeconds:  5,
		Limits: config.Limits{
			CPULimit:    0.5,
			MemLimit:    "128m",
			PidsLimit:   128,
			NetworkMode: "none",
		},
	}
}
