package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"hwbot/internal/eventbus"
	"hwbot/internal/failure"
	"hwbot/internal/gate"
	"hwbot/internal/response"
	"hwbot/internal/schedule"
	"hwbot/internal/tracker"
	"hwbot/internal/transport"
	"hwbot/pkg/logx"
)

type fetchResult struct {
	body string
	err  error
}

type fakeFetcher struct {
	t       *testing.T
	results []fetchResult
	cursors []int64
}

func (f *fakeFetcher) Fetch(_ context.Context, cursor int64) (any, error) {
	f.cursors = append(f.cursors, cursor)
	if len(f.results) == 0 {
		f.t.Fatal("unexpected Fetch")
	}
	r := f.results[0]
	f.results = f.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	v, err := response.Decode([]byte(r.body))
	if err != nil {
		f.t.Fatalf("bad fixture %q: %v", r.body, err)
	}
	return v, nil
}

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

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestLoop(f Fetcher, n transport.Notifier, c *clock, opts Options) *Loop {
	opts.Now = c.Now
	return New(f, n, tracker.New(nil), gate.New(), nilLogger(), opts)
}

const reviewingA = `{"homeworks": [{"homework_name": "A", "status": "reviewing"}]}`

func TestRepeatedResponseSendsOnce(t *testing.T) {
	f := &fakeFetcher{t: t, results: []fetchResult{{body: reviewingA}, {body: reviewingA}}}
	n := &recorder{}
	c := &clock{now: time.Unix(1000, 0)}
	l := newTestLoop(f, n, c, Options{})

	if out := l.RunCycle(context.Background()); !out.OK() || out.Sent != 1 {
		t.Fatalf("cycle 1: %+v", out)
	}
	c.now = c.now.Add(10 * time.Minute)
	if out := l.RunCycle(context.Background()); !out.OK() || out.Sent != 0 {
		t.Fatalf("cycle 2: %+v", out)
	}

	want := `Изменился статус проверки работы "A". Работа взята на проверку ревьюером.`
	if len(n.sent) != 1 || n.sent[0] != want {
		t.Fatalf("sent = %q, want exactly [%q]", n.sent, want)
	}
	if f.cursors[0] != 0 || f.cursors[1] != 1000 {
		t.Fatalf("cursors sent = %v, want [0 1000]", f.cursors)
	}
}

func TestCursorNotAdvancedOnFailure(t *testing.T) {
	f := &fakeFetcher{t: t, results: []fetchResult{
		{body: reviewingA},
		{err: failure.New(failure.EndpointUnreachable, "test")},
	}}
	c := &clock{now: time.Unix(1000, 0)}
	l := newTestLoop(f, &recorder{}, c, Options{InitialCursor: 5})

	l.RunCycle(context.Background())
	t1 := l.Cursor()
	if t1 != 1000 {
		t.Fatalf("cursor after success = %d, want 1000", t1)
	}
	c.now = c.now.Add(time.Hour)
	if out := l.RunCycle(context.Background()); out.OK() {
		t.Fatal("second cycle should fail")
	}
	if l.Cursor() != t1 {
		t.Fatalf("cursor after failure = %d, want %d", l.Cursor(), t1)
	}
}

func TestMissingFieldReportsOnce(t *testing.T) {
	f := &fakeFetcher{t: t, results: []fetchResult{{body: `{"current_date": 1}`}}}
	n := &recorder{}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{InitialCursor: 42})

	out := l.RunCycle(context.Background())
	if failure.KindOf(out.Err) != failure.MissingField {
		t.Fatalf("kind = %v, want MissingField", failure.KindOf(out.Err))
	}
	if l.Cursor() != 42 {
		t.Fatalf("cursor = %d, want 42", l.Cursor())
	}
	want := "Сбой в работе программы: Отсутствие ожидаемых ключей в ответе API."
	if len(n.sent) != 1 || n.sent[0] != want {
		t.Fatalf("sent = %q", n.sent)
	}
}

func TestRepeatedFailureIsSuppressed(t *testing.T) {
	down := failure.New(failure.EndpointUnreachable, "test")
	f := &fakeFetcher{t: t, results: []fetchResult{{err: down}, {err: down}, {body: reviewingA}, {err: down}}}
	n := &recorder{}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{})

	for i := 0; i < 4; i++ {
		l.RunCycle(context.Background())
	}
	if len(n.sent) != 3 {
		t.Fatalf("sent %d messages, want 3: %q", len(n.sent), n.sent)
	}
	if n.sent[0] != n.sent[2] || n.sent[0] == n.sent[1] {
		t.Fatalf("unexpected message order: %q", n.sent)
	}
}

func TestMultipleItemsInListOrder(t *testing.T) {
	body := `{"homeworks": [
		{"homework_name": "A", "status": "reviewing"},
		{"homework_name": "B", "status": "approved"}
	]}`
	f := &fakeFetcher{t: t, results: []fetchResult{{body: body}}}
	n := &recorder{}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{})

	if out := l.RunCycle(context.Background()); !out.OK() || out.Sent != 2 {
		t.Fatalf("cycle: %+v", out)
	}
	want := []string{
		`Изменился статус проверки работы "A". Работа взята на проверку ревьюером.`,
		`Изменился статус проверки работы "B". Работа проверена: ревьюеру всё понравилось. Ура!`,
	}
	if len(n.sent) != 2 || n.sent[0] != want[0] || n.sent[1] != want[1] {
		t.Fatalf("sent = %q, want %q", n.sent, want)
	}
}

// The historical single-item mode looks only at the head of the batch.
func TestFirstItemOnly(t *testing.T) {
	body := `{"homeworks": [
		{"homework_name": "A", "status": "reviewing"},
		{"homework_name": "B", "status": "archived"}
	]}`
	f := &fakeFetcher{t: t, results: []fetchResult{{body: body}}}
	n := &recorder{}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{FirstItemOnly: true})

	out := l.RunCycle(context.Background())
	if !out.OK() || out.Items != 1 || len(n.sent) != 1 {
		t.Fatalf("cycle: %+v sent=%q", out, n.sent)
	}
}

func TestItemFailureShortCircuitsCycle(t *testing.T) {
	body := `{"homeworks": [
		{"homework_name": "A", "status": "reviewing"},
		{"homework_name": "B", "status": "archived"},
		{"homework_name": "C", "status": "approved"}
	]}`
	f := &fakeFetcher{t: t, results: []fetchResult{{body: body}}}
	n := &recorder{}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{InitialCursor: 7})

	out := l.RunCycle(context.Background())
	if failure.KindOf(out.Err) != failure.UnknownStatus {
		t.Fatalf("kind = %v, want UnknownStatus", failure.KindOf(out.Err))
	}
	if l.Cursor() != 7 {
		t.Fatalf("cursor advanced to %d", l.Cursor())
	}
	// A is sent, then the failure report; C is never reached.
	if len(n.sent) != 2 || n.sent[1] != "Сбой в работе программы: Неожиданный статус домашней работы в ответе API." {
		t.Fatalf("sent = %q", n.sent)
	}
}

func TestNotifierFailureKeepsTrackerState(t *testing.T) {
	f := &fakeFetcher{t: t, results: []fetchResult{{body: reviewingA}, {body: reviewingA}}}
	n := &recorder{err: errors.New("telegram down")}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{})

	out := l.RunCycle(context.Background())
	if failure.KindOf(out.Err) != failure.NotifierFailure {
		t.Fatalf("kind = %v, want NotifierFailure", failure.KindOf(out.Err))
	}
	if l.Cursor() != 0 {
		t.Fatalf("cursor advanced to %d", l.Cursor())
	}

	// The tracker already recorded the verdict, so a recovered notifier
	// does not repeat the transition.
	n.err = nil
	if out := l.RunCycle(context.Background()); !out.OK() || len(n.sent) != 0 {
		t.Fatalf("cycle 2: %+v sent=%q", out, n.sent)
	}
}

func TestEventsPublished(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	f := &fakeFetcher{t: t, results: []fetchResult{{body: reviewingA}}}
	var hooked int
	l := newTestLoop(f, &recorder{}, &clock{now: time.Unix(1000, 0)}, Options{
		Bus:     bus,
		OnCycle: func(Outcome) { hooked++ },
	})
	out := l.RunCycle(context.Background())

	var types []string
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	if len(types) != 2 || types[0] != EventNotificationSent || types[1] != EventCycleSucceeded {
		t.Fatalf("events = %v", types)
	}
	if hooked != 1 || out.CycleID == "" {
		t.Fatalf("hook calls = %d, cycle id = %q", hooked, out.CycleID)
	}
}

func TestRunSleepsBetweenCyclesAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{t: t, results: []fetchResult{{body: reviewingA}, {body: reviewingA}}}
	var slept []time.Duration
	sched, err := schedule.Parse("90s")
	if err != nil {
		t.Fatal(err)
	}
	l := newTestLoop(f, &recorder{}, &clock{now: time.Unix(1000, 0)}, Options{
		Schedule: sched,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			if len(slept) == 2 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	})

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.cursors) != 2 {
		t.Fatalf("ran %d cycles, want 2", len(f.cursors))
	}
	if len(slept) != 2 || slept[0] != 90*time.Second {
		t.Fatalf("slept = %v", slept)
	}
}

func TestCanceledCycleIsNotReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{t: t, results: []fetchResult{{err: failure.Wrap(failure.EndpointUnreachable, "test", context.Canceled)}}}
	n := &recorder{}
	l := newTestLoop(f, n, &clock{now: time.Unix(1000, 0)}, Options{})

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(n.sent) != 0 {
		t.Fatalf("shutdown produced notifications: %q", n.sent)
	}
}

func TestDefaultSchedule(t *testing.T) {
	l := New(&fakeFetcher{t: t}, &recorder{}, nil, nil, nilLogger(), Options{})
	if got := l.Schedule().Delay(time.Now()); got != schedule.DefaultInterval {
		t.Fatalf("default delay = %v, want %v", got, schedule.DefaultInterval)
	}
}

func TestSleepCtx(t *testing.T) {
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleepCtx: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleepCtx on canceled ctx = %v", err)
	}
}

func nilLogger() logx.Logger { return logx.Nop() }
