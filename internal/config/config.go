// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the pitchside application.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	DatabaseURL string `json:"database_url"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	HTTPAddr    string `json:"http_addr"`

	CompletionSweepInterval    time.Duration `json:"-"`
	CompletionSweepIntervalStr string        `json:"completion_sweep_interval"`
	AutoRejectSweepInterval    time.Duration `json:"-"`
	AutoRejectSweepIntervalStr string        `json:"autoreject_sweep_interval"`

	// AutoRejectWindow: a pending event starting within this window of now
	// is auto-rejected by the sweep.
	AutoRejectWindow    time.Duration `json:"-"`
	AutoRejectWindowStr string        `json:"autoreject_window"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	NotifyWebhookURL     string        `json:"notify_webhook_url,omitempty"`
	NotifySecret         string        `json:"-"`
	NotifyTimeout        time.Duration `json:"-"`
	NotifyTimeoutStr     string        `json:"notify_timeout"`
	NotifyBufferSize     int           `json:"notify_buffer_size"`
	NotifyDrainTimeout   time.Duration `json:"-"`
	NotifyDrainTimeoutStr string       `json:"notify_drain_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    int    `json:"metrics_port"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	// LeaderElectionEnabled gates the advisory-lock elector. When disabled
	// every instance runs the sweeps.
	LeaderElectionEnabled bool `json:"leader_election_enabled"`

	// LeaderLockKey: all instances sharing the same database must use the same key.
	LeaderLockKey int64 `json:"leader_lock_key"`

	// LeaderRetryInterval determines the maximum failover gap.
	LeaderRetryInterval    time.Duration `json:"-"`
	LeaderRetryIntervalStr string        `json:"leader_retry_interval"`

	// LeaderHeartbeatInterval: pings the dedicated connection to detect
	// local connection death. Does NOT renew the advisory lock.
	LeaderHeartbeatInterval    time.Duration `json:"-"`
	LeaderHeartbeatIntervalStr string        `json:"leader_heartbeat_interval"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		HTTPAddr:                   os.Getenv("HTTP_ADDR"),
		CompletionSweepIntervalStr: os.Getenv("COMPLETION_SWEEP_INTERVAL"),
		AutoRejectSweepIntervalStr: os.Getenv("AUTOREJECT_SWEEP_INTERVAL"),
		AutoRejectWindowStr:        os.Getenv("AUTOREJECT_WINDOW"),
		DBOpTimeoutStr:             os.Getenv("DB_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:       os.Getenv("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTimeStr:       os.Getenv("DB_CONN_MAX_IDLE_TIME"),
		HTTPShutdownTimeoutStr:     os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		NotifyWebhookURL:           os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifySecret:               os.Getenv("NOTIFY_SECRET"),
		NotifyTimeoutStr:           os.Getenv("NOTIFY_TIMEOUT"),
		NotifyDrainTimeoutStr:      os.Getenv("NOTIFY_DRAIN_TIMEOUT"),
		MetricsEnabled:             os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:                os.Getenv("METRICS_PATH"),
		CircuitBreakerCooldownStr:  os.Getenv("CIRCUIT_BREAKER_COOLDOWN"),
		LeaderElectionEnabled:      os.Getenv("LEADER_ELECTION_ENABLED") == "true",
		LeaderRetryIntervalStr:     os.Getenv("LEADER_RETRY_INTERVAL"),
		LeaderHeartbeatIntervalStr: os.Getenv("LEADER_HEARTBEAT_INTERVAL"),
	}

	if bufStr := os.Getenv("NOTIFY_BUFFER_SIZE"); bufStr != "" {
		if n, err := strconv.Atoi(bufStr); err == nil && n > 0 {
			cfg.NotifyBufferSize = n
		} else {
			log.Printf("config: invalid NOTIFY_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.NotifyBufferSize == 0 {
		cfg.NotifyBufferSize = 100
	}

	if portStr := os.Getenv("METRICS_PORT"); portStr != "" {
		if n, err := strconv.Atoi(portStr); err == nil && n > 0 && n < 65536 {
			cfg.MetricsPort = n
		} else {
			log.Printf("config: invalid METRICS_PORT %q, using default 9090", portStr)
		}
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9090
	}

	if cbThreshStr := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); cbThreshStr != "" {
		if n, err := strconv.Atoi(cbThreshStr); err == nil && n >= 0 {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, using default 5", cbThreshStr)
		}
	}
	if cfg.CircuitBreakerThreshold == 0 && os.Getenv("CIRCUIT_BREAKER_THRESHOLD") == "" {
		cfg.CircuitBreakerThreshold = 5
	}

	if lockKeyStr := os.Getenv("LEADER_LOCK_KEY"); lockKeyStr != "" {
		if n, err := strconv.ParseInt(lockKeyStr, 10, 64); err == nil && n > 0 {
			cfg.LeaderLockKey = n
		} else {
			log.Printf("config: invalid LEADER_LOCK_KEY %q (must be a positive integer), using default 911407", lockKeyStr)
		}
	}
	if cfg.LeaderLockKey == 0 {
		cfg.LeaderLockKey = 911407
	}

	if maxOpenStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := strconv.Atoi(maxOpenStr); err == nil && n > 0 {
			cfg.DBMaxOpenConns = n
		}
	}
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = 25
	}

	if maxIdleStr := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := strconv.Atoi(maxIdleStr); err == nil && n > 0 {
			cfg.DBMaxIdleConns = n
		}
	}
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = 5
	}

	// PORT works as a fallback for HTTP_ADDR on PaaS platforms.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.CompletionSweepIntervalStr == "" {
		cfg.CompletionSweepIntervalStr = "1h"
	}
	if cfg.AutoRejectSweepIntervalStr == "" {
		cfg.AutoRejectSweepIntervalStr = "5m"
	}
	if cfg.AutoRejectWindowStr == "" {
		cfg.AutoRejectWindowStr = "30m"
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.DBConnMaxIdleTimeStr == "" {
		cfg.DBConnMaxIdleTimeStr = "5m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.NotifyTimeoutStr == "" {
		cfg.NotifyTimeoutStr = "30s"
	}
	if cfg.NotifyDrainTimeoutStr == "" {
		cfg.NotifyDrainTimeoutStr = "30s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "2m"
	}
	if cfg.LeaderRetryIntervalStr == "" {
		cfg.LeaderRetryIntervalStr = "5s"
	}
	if cfg.LeaderHeartbeatIntervalStr == "" {
		cfg.LeaderHeartbeatIntervalStr = "2s"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.CompletionSweepIntervalStr); err == nil {
		cfg.CompletionSweepInterval = d
	}
	if d, err := time.ParseDuration(cfg.AutoRejectSweepIntervalStr); err == nil {
		cfg.AutoRejectSweepInterval = d
	}
	if d, err := time.ParseDuration(cfg.AutoRejectWindowStr); err == nil {
		cfg.AutoRejectWindow = d
	}
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxLifetimeStr); err == nil {
		cfg.DBConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxIdleTimeStr); err == nil {
		cfg.DBConnMaxIdleTime = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.NotifyTimeoutStr); err == nil {
		cfg.NotifyTimeout = d
	}
	if d, err := time.ParseDuration(cfg.NotifyDrainTimeoutStr); err == nil {
		cfg.NotifyDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreakerCooldownStr); err == nil {
		cfg.CircuitBreakerCooldown = d
	}
	if d, err := time.ParseDuration(cfg.LeaderRetryIntervalStr); err == nil {
		cfg.LeaderRetryInterval = d
	}
	if d, err := time.ParseDuration(cfg.LeaderHeartbeatIntervalStr); err == nil {
		cfg.LeaderHeartbeatInterval = d
	}

	return cfg
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		DatabaseURL             string `json:"database_url"`
		RedisAddr               string `json:"redis_addr,omitempty"`
		HTTPAddr                string `json:"http_addr"`
		CompletionSweepInterval string `json:"completion_sweep_interval"`
		AutoRejectSweepInterval string `json:"autoreject_sweep_interval"`
		AutoRejectWindow        string `json:"autoreject_window"`
		DBOpTimeout             string `json:"db_op_timeout"`
		DBMaxOpenConns          int    `json:"db_max_open_conns"`
		DBMaxIdleConns          int    `json:"db_max_idle_conns"`
		DBConnMaxLifetime       string `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime       string `json:"db_conn_max_idle_time"`
		HTTPShutdownTimeout     string `json:"http_shutdown_timeout"`
		NotifyWebhookURL        string `json:"notify_webhook_url,omitempty"`
		NotifySecret            string `json:"notify_secret,omitempty"`
		NotifyTimeout           string `json:"notify_timeout"`
		NotifyBufferSize        int    `json:"notify_buffer_size"`
		NotifyDrainTimeout      string `json:"notify_drain_timeout"`
		MetricsEnabled          bool   `json:"metrics_enabled"`
		MetricsPath             string `json:"metrics_path"`
		MetricsPort             int    `json:"metrics_port"`
		CircuitBreakerThreshold int    `json:"circuit_breaker_threshold"`
		CircuitBreakerCooldown  string `json:"circuit_breaker_cooldown"`
		LeaderElectionEnabled   bool   `json:"leader_election_enabled"`
		LeaderLockKey           int64  `json:"leader_lock_key"`
		LeaderRetryInterval     string `json:"leader_retry_interval"`
		LeaderHeartbeatInterval string `json:"leader_heartbeat_interval"`
	}{
		DatabaseURL:             maskSecret(c.DatabaseURL),
		RedisAddr:               c.RedisAddr,
		HTTPAddr:                c.HTTPAddr,
		CompletionSweepInterval: c.CompletionSweepIntervalStr,
		AutoRejectSweepInterval: c.AutoRejectSweepIntervalStr,
		AutoRejectWindow:        c.AutoRejectWindowStr,
		DBOpTimeout:             c.DBOpTimeoutStr,
		DBMaxOpenConns:          c.DBMaxOpenConns,
		DBMaxIdleConns:          c.DBMaxIdleConns,
		DBConnMaxLifetime:       c.DBConnMaxLifetimeStr,
		DBConnMaxIdleTime:       c.DBConnMaxIdleTimeStr,
		HTTPShutdownTimeout:     c.HTTPShutdownTimeoutStr,
		NotifyWebhookURL:        c.NotifyWebhookURL,
		NotifySecret:            maskIfSet(c.NotifySecret),
		NotifyTimeout:           c.NotifyTimeoutStr,
		NotifyBufferSize:        c.NotifyBufferSize,
		NotifyDrainTimeout:      c.NotifyDrainTimeoutStr,
		MetricsEnabled:          c.MetricsEnabled,
		MetricsPath:             c.MetricsPath,
		MetricsPort:             c.MetricsPort,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  c.CircuitBreakerCooldownStr,
		LeaderElectionEnabled:   c.LeaderElectionEnabled,
		LeaderLockKey:           c.LeaderLockKey,
		LeaderRetryInterval:     c.LeaderRetryIntervalStr,
		LeaderHeartbeatInterval: c.LeaderHeartbeatIntervalStr,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return "***"
}

func maskIfSet(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
