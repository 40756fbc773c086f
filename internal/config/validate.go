// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Dimensions.CacheSize < 1 {
		return fmt.Errorf("DIMENSION_CACHE_SIZE must be at least 1")
	}
	if c.Dimensions.CacheTTL <= 0 {
		return fmt.Errorf("DIMENSION_CACHE_TTL must be positive")
	}
	if err := c.validateSessions(); err != nil {
		return err
	}
	if err := c.validateChart(); err != nil {
		return err
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitReqs < 1 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	if c.WebSocket.CommandsPerSecond <= 0 || c.WebSocket.CommandBurst < 1 {
		return fmt.Errorf("WS_COMMANDS_PER_SECOND and WS_COMMAND_BURST must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateSessions() error {
	if c.Sessions.MaxSessions < 1 {
		return fmt.Errorf("SESSION_MAX must be at least 1")
	}
	if c.Sessions.IdleTTL <= 0 || c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateChart() error {
	if c.Chart.MaxSegments < 1 {
		return fmt.Errorf("CHART_MAX_SEGMENTS must be at least 1")
	}
	if c.Chart.QueryTimeout <= 0 {
		return fmt.Errorf("CHART_QUERY_TIMEOUT must be positive")
	}
	if c.Chart.BreakerFailureRatio <= 0 || c.Chart.BreakerFailureRatio > 1 {
		return fmt.Errorf("CHART_BREAKER_RATIO must be in (0, 1], got %v", c.Chart.BreakerFailureRatio)
	}
	if c.Chart.BreakerTimeout <= 0 {
		return fmt.Errorf("CHART_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a recognized level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
