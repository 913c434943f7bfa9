package config

// Config is the on-disk configuration. Credentials never live here; they
// come from the environment (see LoadCredentials).
//
// All durations are Go duration strings (e.g. "30s", "10m").
type Config struct {
	Source   SourceConfig      `json:"source"`
	Telegram TelegramConfig    `json:"telegram"`
	Poll     PollConfig        `json:"poll"`
	Statuses map[string]string `json:"statuses,omitempty"`
	Logging  LoggingConfig     `json:"logging"`
	Storage  StorageConfig     `json:"storage"`
}

type SourceConfig struct {
	URL        string `json:"url"`
	AuthScheme string `json:"auth_scheme"`
	Timeout    string `json:"timeout"`
}

type TelegramConfig struct {
	Timeout    string `json:"timeout"`
	RatePerSec int    `json:"rate_per_sec"`
}

// PollConfig controls the loop.
//
// Schedule accepts a Go duration ("10m"), HH:MM ("00:10") or a cron
// expression ("cron:*/10 * * * *"). Empty means every 600s.
type PollConfig struct {
	Schedule      string `json:"schedule"`
	InitialCursor int64  `json:"initial_cursor"`
	FirstItemOnly bool   `json:"first_item_only"`
}

type LoggingConfig struct {
	Level    string            `json:"level"`
	Console  bool              `json:"console"`
	File     LogFileConfig     `json:"file"`
	Telegram LogTelegramConfig `json:"telegram"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LogTelegramConfig struct {
	Enabled     bool   `json:"enabled"`
	Destination string `json:"destination"`
	MinLevel    string `json:"min_level"`
	RatePerSec  int    `json:"rate_per_sec"`
}

// StorageConfig selects the audit store. Driver "" or "none" disables it.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"`
}

// Default returns the built-in configuration used when no file exists.
// Parse decodes on top of it, so omitted fields keep these values.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URL:        "https://practicum.yandex.ru/api/user_api/homework_statuses/",
			AuthScheme: "OAuth",
			Timeout:    "30s",
		},
		Telegram: TelegramConfig{Timeout: "15s", RatePerSec: 1},
		Poll:     PollConfig{Schedule: "600s"},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LogFileConfig{Path: "./hwbot.log"},
			Telegram: LogTelegramConfig{
				MinLevel:   "error",
				RatePerSec: 1,
			},
		},
		Storage: StorageConfig{Path: "./data/hwbot.db", BusyTimeout: "5s"},
	}
}
