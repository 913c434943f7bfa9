package config

import (
	"maps"
	"strings"

	"hwbot/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe
// structured attrs for logging. Nothing here is secret, but destination
// chats are still reported only as set/unset.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Source != newCfg.Source {
		changed = append(changed, "source")
		attrs = append(attrs,
			logx.String("source.url", newCfg.Source.URL),
			logx.String("source.timeout", newCfg.Source.Timeout),
		)
	}
	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
	}
	if oldCfg.Poll != newCfg.Poll {
		changed = append(changed, "poll")
		attrs = append(attrs,
			logx.String("poll.schedule", newCfg.Poll.Schedule),
			logx.Bool("poll.first_item_only", newCfg.Poll.FirstItemOnly),
		)
	}
	if !maps.Equal(oldCfg.Statuses, newCfg.Statuses) {
		changed = append(changed, "statuses")
		attrs = append(attrs, logx.Int("statuses.extra", len(newCfg.Statuses)))
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
			logx.Bool("logging.telegram_destination_set", strings.TrimSpace(newCfg.Logging.Telegram.Destination) != ""),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	return changed, attrs
}

// RestartRequired reports whether any of sections cannot be applied live.
func RestartRequired(sections []string) []string {
	var out []string
	for _, s := range sections {
		switch s {
		case "source", "telegram", "statuses", "storage":
			out = append(out, s)
		}
	}
	return out
}
