package app

import (
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/endpoint"
	"hwbot/internal/storage"
	"hwbot/internal/transport/telegram"
	"hwbot/pkg/logx"
)

func mapEndpointConfig(cfg *config.Config, creds config.Credentials) endpoint.Config {
	return endpoint.Config{
		URL:        strings.TrimSpace(cfg.Source.URL),
		Token:      creds.SourceToken,
		AuthScheme: strings.TrimSpace(cfg.Source.AuthScheme),
		Timeout:    config.DurationOrDefault(cfg.Source.Timeout, endpoint.DefaultTimeout),
	}
}

func mapTelegramConfig(cfg *config.Config, creds config.Credentials) telegram.Config {
	return telegram.Config{
		Token:       creds.NotifierToken,
		Destination: creds.Destination,
		Timeout:     config.DurationOrDefault(cfg.Telegram.Timeout, 15*time.Second),
		RatePerSec:  cfg.Telegram.RatePerSec,
	}
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:     cfg.Logging.Telegram.Enabled,
			Destination: strings.TrimSpace(cfg.Logging.Telegram.Destination),
			MinLevel:    cfg.Logging.Telegram.MinLevel,
			RatePerSec:  cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: config.DurationOrDefault(cfg.Storage.BusyTimeout, 5*time.Second),
	}
}
