// Package poller runs the fetch, validate, diff and notify cycle.
//
// One Loop owns the tracker, the gate and the cursor. Exactly one cycle runs
// at a time; the sleep between cycles is the only suspension point and ends
// early only when the context is canceled.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"hwbot/internal/eventbus"
	"hwbot/internal/failure"
	"hwbot/internal/gate"
	"hwbot/internal/response"
	"hwbot/internal/schedule"
	"hwbot/internal/tracker"
	"hwbot/internal/transport"
	"hwbot/pkg/logx"
)

// Fetcher performs one round trip to the status endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, cursor int64) (any, error)
}

type Options struct {
	// InitialCursor is sent on the first cycle.
	InitialCursor int64
	// FirstItemOnly processes only the first item of each batch, the way
	// the earliest versions of the bot did.
	FirstItemOnly bool
	Schedule      *schedule.Spec

	Bus eventbus.Bus
	// OnCycle is called after every cycle (e.g. systemd watchdog ping).
	OnCycle func(Outcome)

	// Now and Sleep are overridable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Outcome summarizes one cycle.
type Outcome struct {
	CycleID string
	Cursor  int64
	Items   int
	Sent    int
	Err     error
	Took    time.Duration
}

func (o Outcome) OK() bool { return o.Err == nil }

type Loop struct {
	fetcher  Fetcher
	notifier transport.Notifier
	tracker  *tracker.Tracker
	gate     *gate.Gate
	log      logx.Logger
	bus      eventbus.Bus

	cursor    atomic.Int64
	firstOnly atomic.Bool
	sched     atomic.Pointer[schedule.Spec]
	onCycle   func(Outcome)
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(f Fetcher, n transport.Notifier, tr *tracker.Tracker, g *gate.Gate, log logx.Logger, opts Options) *Loop {
	if tr == nil {
		tr = tracker.New(nil)
	}
	if g == nil {
		g = gate.New()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Loop{
		fetcher:  f,
		notifier: n,
		tracker:  tr,
		gate:     g,
		log:      log,
		bus:      opts.Bus,
		onCycle:  opts.OnCycle,
		now:      opts.Now,
		sleep:    opts.Sleep,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = sleepCtx
	}
	l.SetSchedule(opts.Schedule)
	l.cursor.Store(opts.InitialCursor)
	l.firstOnly.Store(opts.FirstItemOnly)
	return l
}

// Cursor returns the cursor the next cycle will send.
func (l *Loop) Cursor() int64 { return l.cursor.Load() }

// SetSchedule swaps the sleep schedule. Safe to call from another goroutine.
func (l *Loop) SetSchedule(s *schedule.Spec) {
	if s == nil {
		s = schedule.Default()
	}
	l.sched.Store(s)
}

func (l *Loop) Schedule() *schedule.Spec { return l.sched.Load() }

// SetFirstItemOnly toggles single-item mode for subsequent cycles.
func (l *Loop) SetFirstItemOnly(v bool) { l.firstOnly.Store(v) }

// Run loops until ctx is canceled. It never returns an error of its own:
// every cycle failure is reported and retried after the next sleep.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("poll loop started",
		logx.Int64("cursor", l.Cursor()),
		logx.String("schedule", l.Schedule().String()),
		logx.Bool("first_item_only", l.firstOnly.Load()),
	)
	for {
		l.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}
		d := l.Schedule().Delay(l.now())
		l.log.Debug("sleeping", logx.Duration("for", d))
		if err := l.sleep(ctx, d); err != nil {
			break
		}
	}
	l.log.Info("poll loop stopped", logx.Int64("cursor", l.Cursor()))
	return nil
}

// RunCycle performs exactly one POLLING step and its SUCCESS or FAILURE
// handling. The cursor advances only when the whole cycle succeeds.
func (l *Loop) RunCycle(ctx context.Context) Outcome {
	start := l.now()
	out := Outcome{CycleID: uuid.NewString()}
	log := l.log.With(logx.String("cycle", out.CycleID))

	out.Items, out.Sent, out.Err = l.poll(ctx, log, out.CycleID)
	if out.Err == nil {
		// Keep the cursor monotonic even if the wall clock steps back.
		if ts := l.now().Unix(); ts > l.Cursor() {
			l.cursor.Store(ts)
		}
	} else if ctx.Err() == nil {
		l.reportFailure(ctx, log, out.CycleID, out.Err)
	}
	out.Cursor = l.Cursor()
	out.Took = l.now().Sub(start)

	l.publishCycle(out)
	if out.Err == nil {
		log.Debug("cycle succeeded", logx.Int("items", out.Items), logx.Int("sent", out.Sent), logx.Int64("cursor", out.Cursor))
	}
	if l.onCycle != nil {
		l.onCycle(out)
	}
	return out
}

func (l *Loop) poll(ctx context.Context, log logx.Logger, cycleID string) (items, sent int, err error) {
	raw, err := l.fetcher.Fetch(ctx, l.Cursor())
	if err != nil {
		return 0, 0, err
	}
	batch, err := response.Validate(raw)
	if err != nil {
		return 0, 0, err
	}
	if l.firstOnly.Load() && len(batch) > 1 {
		batch = batch[:1]
	}
	if len(batch) == 0 {
		log.Debug("no items in response")
	}
	for _, it := range batch {
		items++
		msg, changed, err := l.tracker.Observe(it)
		if err != nil {
			return items, sent, err
		}
		if !changed {
			log.Debug("status unchanged", logx.String("item", it.Name))
			continue
		}
		ok, err := l.gate.MaybeSend(ctx, l.notifier, msg)
		if err != nil {
			l.publishNotification(EventNotificationFailed, NotificationEvent{CycleID: cycleID, Text: msg, Error: err.Error()})
			return items, sent, err
		}
		if ok {
			sent++
			log.Info("transition sent", logx.String("item", it.Name), logx.String("status", it.Status))
			l.publishNotification(EventNotificationSent, NotificationEvent{CycleID: cycleID, Text: msg})
		} else {
			l.publishNotification(EventNotificationSuppressed, NotificationEvent{CycleID: cycleID, Text: msg})
		}
	}
	return items, sent, nil
}

// reportFailure logs err at its severity and sends the generic failure text
// through the gate. A failure of that send is only logged.
func (l *Loop) reportFailure(ctx context.Context, log logx.Logger, cycleID string, err error) {
	c := failure.Classify(err)
	log.Log(severityLevel(c.Severity), c.Message, logx.String("kind", c.Kind.String()), logx.Err(err))

	text := c.Notification()
	sent, serr := l.gate.MaybeSend(ctx, l.notifier, text)
	switch {
	case serr != nil:
		log.Error("failure report not delivered", logx.Err(serr))
		l.publishNotification(EventNotificationFailed, NotificationEvent{CycleID: cycleID, Text: text, Failure: true, Error: serr.Error()})
	case !sent:
		log.Debug("failure report suppressed (same as last message)")
		l.publishNotification(EventNotificationSuppressed, NotificationEvent{CycleID: cycleID, Text: text, Failure: true})
	default:
		l.publishNotification(EventNotificationSent, NotificationEvent{CycleID: cycleID, Text: text, Failure: true})
	}
}

func (l *Loop) publishCycle(out Outcome) {
	if l.bus == nil {
		return
	}
	ev := CycleEvent{CycleID: out.CycleID, Cursor: out.Cursor, Items: out.Items, Sent: out.Sent, Took: out.Took}
	typ := EventCycleSucceeded
	if out.Err != nil {
		typ = EventCycleFailed
		ev.Kind = failure.KindOf(out.Err).String()
		ev.Error = out.Err.Error()
	}
	l.bus.Publish(eventbus.Event{Type: typ, Time: l.now(), Data: ev})
}

func (l *Loop) publishNotification(typ string, ev NotificationEvent) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(eventbus.Event{Type: typ, Time: l.now(), Data: ev})
}

func severityLevel(s failure.Severity) logx.Level {
	if s == failure.SeverityCritical {
		return logx.LevelCritical
	}
	return logx.LevelError
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
