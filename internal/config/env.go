package config

import (
	"os"
	"strings"

	"hwbot/internal/failure"
)

// Required environment variables.
const (
	EnvSourceToken   = "SOURCE_API_TOKEN"
	EnvNotifierToken = "NOTIFIER_TOKEN"
	EnvDestination   = "NOTIFIER_DESTINATION"
)

// legacyEnv lists the names older deployments used. They are consulted only
// when the primary name is unset.
var legacyEnv = map[string]string{
	EnvSourceToken:   "PRACTICUM_TOKEN",
	EnvNotifierToken: "TELEGRAM_TOKEN",
	EnvDestination:   "TELEGRAM_CHAT_ID",
}

// Credentials are the three values the daemon cannot start without.
type Credentials struct {
	SourceToken   string
	NotifierToken string
	Destination   string
}

// LoadCredentials reads credentials through getenv (os.Getenv when nil).
// Any absent value yields a MissingCredentials failure naming every missing
// variable.
func LoadCredentials(getenv func(string) string) (Credentials, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var missing []string
	lookup := func(name string) string {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			v = strings.TrimSpace(getenv(legacyEnv[name]))
		}
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}
	c := Credentials{
		SourceToken:   lookup(EnvSourceToken),
		NotifierToken: lookup(EnvNotifierToken),
		Destination:   lookup(EnvDestination),
	}
	if len(missing) > 0 {
		return c, failure.Newf(failure.MissingCredentials, "config.LoadCredentials", "unset: %s", strings.Join(missing, ", "))
	}
	return c, nil
}
