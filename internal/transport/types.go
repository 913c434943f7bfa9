package transport

import "context"

// Notifier delivers plain text to the one destination configured at startup.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Sender delivers plain text to an explicit destination (chat id or @channel).
// The log sink uses it to reach a chat other than the notification target.
type Sender interface {
	SendTo(ctx context.Context, dest string, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, text string) error

func (f NotifierFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}
