// Package schedule decides how long the poll loop sleeps between cycles.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the historical fixed retry/poll interval.
const DefaultInterval = 600 * time.Second

// Kind describes the normalized kind of a schedule string.
type Kind int

const (
	KindInterval Kind = iota
	KindCron
)

// Spec is a parsed poll schedule.
//
// Supported forms:
//   - Interval duration: "10m", "90s"
//   - Interval HH:MM: "00:10" (10 minutes)
//   - Cron: "*/10 * * * *", "@hourly", "@every 10m"
//
// Optional prefixes "cron:" and "interval:"/"every:" force the form.
type Spec struct {
	Kind   Kind
	Every  time.Duration
	Source string // "duration" | "hhmm" | "cron"
	Raw    string

	cron cron.Schedule
}

var (
	reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

	parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// Default returns the fixed 600s interval schedule.
func Default() *Spec {
	return &Spec{Kind: KindInterval, Every: DefaultInterval, Source: "duration", Raw: DefaultInterval.String()}
}

// Parse parses raw. An empty string yields Default().
func Parse(raw string) (*Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Default(), nil
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(raw, strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"):
		return parseInterval(raw, strings.TrimSpace(s[len("interval:"):]))
	case strings.HasPrefix(low, "every:"):
		return parseInterval(raw, strings.TrimSpace(s[len("every:"):]))
	}

	// Whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(raw, s)
	}
	sp, err := parseInterval(raw, s)
	if err != nil {
		return nil, fmt.Errorf(
			"invalid schedule %q (use a duration like '10m', HH:MM like '00:10', or cron like '*/10 * * * *')",
			raw,
		)
	}
	return sp, nil
}

func parseCron(raw, expr string) (*Spec, error) {
	if expr == "" {
		return nil, fmt.Errorf("cron schedule required")
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return &Spec{Kind: KindCron, Source: "cron", Raw: raw, cron: sched}, nil
}

func parseInterval(raw, v string) (*Spec, error) {
	if v == "" {
		return nil, fmt.Errorf("interval required")
	}
	if reHHMM.MatchString(v) {
		d, err := parseHHMM(v)
		if err != nil {
			return nil, err
		}
		return &Spec{Kind: KindInterval, Every: d, Source: "hhmm", Raw: raw}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", v, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("interval must be > 0")
	}
	return &Spec{Kind: KindInterval, Every: d, Source: "duration", Raw: raw}, nil
}

func parseHHMM(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	hh, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", v)
	}
	mm, err := strconv.Atoi(m[2])
	if err != nil || mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

// Next returns the next wake-up time strictly after now.
func (s *Spec) Next(now time.Time) time.Time {
	if s == nil {
		return now.Add(DefaultInterval)
	}
	if s.Kind == KindCron && s.cron != nil {
		return s.cron.Next(now)
	}
	every := s.Every
	if every <= 0 {
		every = DefaultInterval
	}
	return now.Add(every)
}

// Delay returns how long to sleep from now until Next(now).
func (s *Spec) Delay(now time.Time) time.Duration {
	d := s.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Spec) String() string {
	if s == nil {
		return DefaultInterval.String()
	}
	if s.Kind == KindCron {
		return "cron(" + strings.TrimSpace(s.Raw) + ")"
	}
	return s.Every.String()
}
