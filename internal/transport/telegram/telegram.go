// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"hwbot/internal/transport"
	"hwbot/pkg/logx"
)

const textLimit = 4000

type Config struct {
	Token string
	// Destination is the fixed recipient: a numeric chat id or "@channel".
	Destination string
	Timeout     time.Duration
	RatePerSec  int
	Options     transport.SendOptions
}

// api is the subset of *tele.Bot the adapter uses.
type api interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Adapter implements transport.Notifier and transport.Sender.
type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     api
	limiter *rate.Limiter
}

// chatRef lets both numeric ids and @usernames act as a tele.Recipient.
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.Timeout},
		// Send-only bot: skip the getMe round trip at startup.
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return newWithAPI(cfg, b, log), nil
}

func newWithAPI(cfg Config, bot api, log logx.Logger) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Send delivers text to the configured destination.
func (a *Adapter) Send(ctx context.Context, text string) error {
	return a.SendTo(ctx, a.cfg.Destination, text)
}

// SendTo delivers text to dest, splitting it into chunks under the API limit.
func (a *Adapter) SendTo(ctx context.Context, dest string, text string) error {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return errors.New("telegram destination is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	to := chatRef(dest)
	opt := &tele.SendOptions{
		ParseMode:             tele.ParseMode(a.cfg.Options.ParseMode),
		DisableWebPagePreview: a.cfg.Options.DisablePreview,
	}
	for _, chunk := range splitText(text, textLimit) {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.bot.Send(to, chunk, opt); err != nil {
			return err
		}
	}
	a.log.Debug("message sent", logx.String("dest", dest), logx.Int("len", len(text)))
	return nil
}

// splitText splits long messages into chunks Telegram accepts, preferring
// newline boundaries.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
