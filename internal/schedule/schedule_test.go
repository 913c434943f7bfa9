package schedule

import (
	"testing"
	"time"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		raw    string
		kind   Kind
		source string
		every  time.Duration
	}{
		{name: "empty", raw: "", kind: KindInterval, source: "duration", every: 600 * time.Second},
		{name: "duration", raw: "10m", kind: KindInterval, source: "duration", every: 10 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", kind: KindInterval, source: "duration", every: 45 * time.Second},
		{name: "every prefix", raw: "every:00:05", kind: KindInterval, source: "hhmm", every: 5 * time.Minute},
		{name: "hhmm", raw: "01:30", kind: KindInterval, source: "hhmm", every: 90 * time.Minute},
		{name: "cron", raw: "*/10 * * * *", kind: KindCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 9 * * *", kind: KindCron, source: "cron"},
		{name: "descriptor", raw: "@hourly", kind: KindCron, source: "cron"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == KindInterval && got.Every != tt.every {
				t.Fatalf("Every = %v, want %v", got.Every, tt.every)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"not-a-schedule", "-5m", "00:00", "cron:", "cron:61 * * * *", "01:75"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q): expected error", raw)
		}
	}
}

func TestDelayInterval(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if d := Default().Delay(now); d != 600*time.Second {
		t.Fatalf("Default().Delay = %v, want 10m", d)
	}
	var nilSpec *Spec
	if d := nilSpec.Delay(now); d != DefaultInterval {
		t.Fatalf("nil spec delay = %v, want default", d)
	}
}

func TestDelayCron(t *testing.T) {
	t.Parallel()
	sp, err := Parse("*/10 * * * *")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 1, 12, 3, 30, 0, time.UTC)
	want := time.Date(2024, 3, 1, 12, 10, 0, 0, time.UTC)
	if got := sp.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
	if d := sp.Delay(now); d != 6*time.Minute+30*time.Second {
		t.Fatalf("Delay = %v", d)
	}
}
