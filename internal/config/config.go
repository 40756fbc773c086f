// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package config loads Corridor's configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Dimensions DimensionsConfig `koanf:"dimensions"`
	Sessions   SessionsConfig   `koanf:"sessions"`
	Chart      ChartConfig      `koanf:"chart"`
	Security   SecurityConfig   `koanf:"security"`
	WebSocket  WebSocketConfig  `koanf:"websocket"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`          // read/write timeout
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"` // graceful drain
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // ":memory:" for an ephemeral store
	MaxMemory string `koanf:"max_memory"` // DuckDB memory limit, e.g. "1GB"
	Threads   int    `koanf:"threads"`    // 0 = runtime.NumCPU()
	SeedDemo  bool   `koanf:"seed_demo"`  // write the demo corridor on startup
}

// DimensionsConfig sizes the membership snapshot cache.
type DimensionsConfig struct {
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// SessionsConfig bounds the selection sessions held in memory.
type SessionsConfig struct {
	MaxSessions   int           `koanf:"max_sessions"`
	IdleTTL       time.Duration `koanf:"idle_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ChartConfig tunes chart queries and their circuit breaker.
type ChartConfig struct {
	MaxSegments  int           `koanf:"max_segments"` // larger segment restrictions are rejected
	QueryTimeout time.Duration `koanf:"query_timeout"`

	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`  // half-open probes
	BreakerInterval     time.Duration `koanf:"breaker_interval"`      // closed-state count reset
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`       // open -> half-open
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"` // trip threshold
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
}

// SecurityConfig holds CORS and rate limiting. Corridor has no
// authentication layer.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// WebSocketConfig limits client command traffic.
type WebSocketConfig struct {
	CommandsPerSecond float64 `koanf:"commands_per_second"`
	CommandBurst      int     `koanf:"command_burst"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
