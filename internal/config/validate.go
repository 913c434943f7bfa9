package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"hwbot/internal/catalog"
	"hwbot/internal/schedule"
	"hwbot/internal/storage"
	"hwbot/pkg/logx"
)

// Validate checks every field that would otherwise fail later at apply time.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if u := strings.TrimSpace(cfg.Source.URL); u != "" {
		pu, err := url.Parse(u)
		if err != nil || pu.Scheme == "" || pu.Host == "" {
			add(fmt.Errorf("source.url: invalid url %q", u))
		}
	}
	_, err := ParseDurationField("source.timeout", cfg.Source.Timeout)
	add(err)
	_, err = ParseDurationField("telegram.timeout", cfg.Telegram.Timeout)
	add(err)
	if cfg.Telegram.RatePerSec < 0 {
		add(errors.New("telegram.rate_per_sec must be >= 0"))
	}

	if _, err := schedule.Parse(cfg.Poll.Schedule); err != nil {
		add(fmt.Errorf("poll.schedule: %w", err))
	}
	if cfg.Poll.InitialCursor < 0 {
		add(errors.New("poll.initial_cursor must be >= 0"))
	}
	if _, err := catalog.New(cfg.Statuses); err != nil {
		add(fmt.Errorf("statuses: %w", err))
	}

	if !logx.ValidLevel(cfg.Logging.Level) {
		add(fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	if !logx.ValidLevel(cfg.Logging.Telegram.MinLevel) {
		add(fmt.Errorf("logging.telegram.min_level: unknown level %q", cfg.Logging.Telegram.MinLevel))
	}
	if cfg.Logging.Telegram.Enabled && strings.TrimSpace(cfg.Logging.Telegram.Destination) == "" {
		add(errors.New("logging.telegram.destination is required when logging.telegram.enabled is set"))
	}
	if cfg.Logging.Telegram.RatePerSec < 0 {
		add(errors.New("logging.telegram.rate_per_sec must be >= 0"))
	}

	if !storage.ValidDriver(cfg.Storage.Driver) {
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	return errors.Join(errs...)
}

// ValidateCredentials runs Validate and the checks that need the
// environment credentials. The log sink must not share the notification
// chat: log lines bypass duplicate suppression.
func ValidateCredentials(cfg *Config, creds Credentials) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	lt := cfg.Logging.Telegram
	if lt.Enabled && strings.TrimSpace(lt.Destination) == strings.TrimSpace(creds.Destination) {
		return fmt.Errorf("logging.telegram.destination must differ from %s", EnvDestination)
	}
	return nil
}
