package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hwbot/internal/transport"
)

const (
	sinkSendTimeout = 10 * time.Second
	sinkQueueSize   = 256
	maxLineRunes    = 3500
	maxValueRunes   = 600
)

// telegramSink forwards events at or above a minimum level to a chat.
// Writes never block: lines over the rate limit or a full queue are dropped.
type telegramSink struct {
	sender transport.Sender
	queue  chan telegramLine
	state  atomic.Pointer[sinkState]

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type sinkState struct {
	dest     string
	minLevel zerolog.Level
	limiter  *rate.Limiter
}

type telegramLine struct {
	dest string
	text string
}

func newTelegramSink(sender transport.Sender) *telegramSink {
	ctx, cancel := context.WithCancel(context.Background())
	t := &telegramSink{
		sender: sender,
		queue:  make(chan telegramLine, sinkQueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx)
	return t
}

func (t *telegramSink) configure(cfg TelegramConfig) {
	rps := max(1, cfg.RatePerSec)
	t.state.Store(&sinkState{
		dest:     strings.TrimSpace(cfg.Destination),
		minLevel: parseLevel(cfg.MinLevel, zerolog.ErrorLevel),
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
	})
}

func (t *telegramSink) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.InfoLevel, p)
}

func (t *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	st := t.state.Load()
	if st == nil || st.dest == "" || level < st.minLevel || !st.limiter.Allow() {
		return len(p), nil
	}
	if text := formatLine(p); text != "" {
		select {
		case t.queue <- telegramLine{dest: st.dest, text: text}:
		default:
		}
	}
	return len(p), nil
}

func (t *telegramSink) run(ctx context.Context) {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-t.queue:
			sctx, cancel := context.WithTimeout(ctx, sinkSendTimeout)
			_ = t.sender.SendTo(sctx, line.dest, line.text)
			cancel()
		}
	}
}

func (t *telegramSink) stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// formatLine renders a JSON event as "[LEVEL] message" followed by one
// "- key=value" line per remaining field, keys sorted.
func formatLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), maxLineRunes)
	}
	var b strings.Builder
	if lvl, _ := m[zerolog.LevelFieldName].(string); lvl != "" {
		fmt.Fprintf(&b, "[%s] ", strings.ToUpper(lvl))
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)
	for _, k := range slices.Sorted(maps.Keys(m)) {
		switch k {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.TimestampFieldName:
			continue
		}
		fmt.Fprintf(&b, "\n- %s=%s", k, truncate(fmt.Sprint(m[k]), maxValueRunes))
	}
	return truncate(b.String(), maxLineRunes)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
