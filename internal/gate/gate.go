// Package gate suppresses back-to-back duplicate outbound messages.
package gate

import (
	"context"

	"hwbot/internal/failure"
	"hwbot/internal/transport"
)

// Gate holds the last message it actually delivered. A single slot is shared
// by transition and failure messages alike.
//
// Owned by one poll loop; not safe for concurrent use.
type Gate struct {
	last    string
	hasLast bool
}

func New() *Gate { return &Gate{} }

// MaybeSend delivers message through n unless it equals the last delivered
// message. A notifier error is returned as NotifierFailure and leaves the
// slot untouched, so the same text is attempted again next time.
func (g *Gate) MaybeSend(ctx context.Context, n transport.Notifier, message string) (bool, error) {
	if g.hasLast && g.last == message {
		return false, nil
	}
	if n == nil {
		return false, failure.Newf(failure.NotifierFailure, "gate.MaybeSend", "no notifier configured")
	}
	if err := n.Send(ctx, message); err != nil {
		return false, failure.Wrap(failure.NotifierFailure, "gate.MaybeSend", err)
	}
	g.last = message
	g.hasLast = true
	return true, nil
}

// Last returns the last delivered message.
func (g *Gate) Last() (string, bool) { return g.last, g.hasLast }

// Restore seeds the slot with a message delivered by a previous run.
func (g *Gate) Restore(message string) {
	g.last = message
	g.hasLast = true
}
