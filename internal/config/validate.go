package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "required",
		})
	}

	durations := []struct {
		field string
		raw   string
	}{
		{"COMPLETION_SWEEP_INTERVAL", cfg.CompletionSweepIntervalStr},
		{"AUTOREJECT_SWEEP_INTERVAL", cfg.AutoRejectSweepIntervalStr},
		{"AUTOREJECT_WINDOW", cfg.AutoRejectWindowStr},
		{"DB_OP_TIMEOUT", cfg.DBOpTimeoutStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"NOTIFY_TIMEOUT", cfg.NotifyTimeoutStr},
		{"NOTIFY_DRAIN_TIMEOUT", cfg.NotifyDrainTimeoutStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
		{"LEADER_RETRY_INTERVAL", cfg.LeaderRetryIntervalStr},
		{"LEADER_HEARTBEAT_INTERVAL", cfg.LeaderHeartbeatIntervalStr},
	}
	for _, dur := range durations {
		if dur.raw == "" {
			continue
		}
		d, err := time.ParseDuration(dur.raw)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   dur.field,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   dur.field,
				Message: "must be positive",
			})
		}
	}

	if cfg.NotifyWebhookURL != "" {
		if err := validateWebhookURL(cfg.NotifyWebhookURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "NOTIFY_WEBHOOK_URL",
				Message: err.Error(),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
