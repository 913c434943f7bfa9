package gate

import (
	"context"
	"errors"
	"testing"

	"hwbot/internal/failure"
)

type recorder struct {
	sent []string
	err  error
}

func (r *recorder) Send(_ context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func TestMaybeSendSuppressesRepeat(t *testing.T) {
	ctx := context.Background()
	g := New()
	n := &recorder{}

	sent, err := g.MaybeSend(ctx, n, "X")
	if err != nil || !sent {
		t.Fatalf("first send: sent=%v err=%v", sent, err)
	}
	sent, err = g.MaybeSend(ctx, n, "X")
	if err != nil || sent {
		t.Fatalf("second send: sent=%v err=%v, want suppressed", sent, err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("notifier invoked %d times, want 1", len(n.sent))
	}
}

func TestMaybeSendDifferentMessageReplacesSlot(t *testing.T) {
	ctx := context.Background()
	g := New()
	n := &recorder{}
	for _, m := range []string{"X", "Y", "X"} {
		if sent, err := g.MaybeSend(ctx, n, m); err != nil || !sent {
			t.Fatalf("MaybeSend(%q): sent=%v err=%v", m, sent, err)
		}
	}
	if len(n.sent) != 3 {
		t.Fatalf("sent %v, want three deliveries", n.sent)
	}
	if last, _ := g.Last(); last != "X" {
		t.Fatalf("Last() = %q, want X", last)
	}
}

func TestMaybeSendPropagatesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	g := New()
	n := &recorder{err: errors.New("telegram down")}

	sent, err := g.MaybeSend(ctx, n, "X")
	if sent {
		t.Fatal("failed send reported as sent")
	}
	if !failure.Is(err, failure.NotifierFailure) {
		t.Fatalf("kind = %v, want NotifierFailure", failure.KindOf(err))
	}
	if _, ok := g.Last(); ok {
		t.Fatal("failed send must not fill the slot")
	}

	// Once the notifier recovers the same text goes out.
	n.err = nil
	if sent, err := g.MaybeSend(ctx, n, "X"); err != nil || !sent {
		t.Fatalf("retry: sent=%v err=%v", sent, err)
	}
}

func TestMaybeSendEmptyMessageOnFreshGate(t *testing.T) {
	g := New()
	n := &recorder{}
	if sent, _ := g.MaybeSend(context.Background(), n, ""); !sent {
		t.Fatal("fresh gate must not treat the empty string as already sent")
	}
}

func TestRestoreSuppressesPreviousMessage(t *testing.T) {
	g := New()
	g.Restore("X")
	n := &recorder{}
	if sent, _ := g.MaybeSend(context.Background(), n, "X"); sent {
		t.Fatal("restored message must be suppressed")
	}
	if sent, _ := g.MaybeSend(context.Background(), n, "Y"); !sent {
		t.Fatal("different message must be sent")
	}
}
