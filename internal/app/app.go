// Package app wires configuration, transport, storage and the poll loop
// into one daemon.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hwbot/internal/catalog"
	"hwbot/internal/config"
	"hwbot/internal/endpoint"
	"hwbot/internal/eventbus"
	"hwbot/internal/failure"
	"hwbot/internal/gate"
	"hwbot/internal/journal"
	"hwbot/internal/poller"
	"hwbot/internal/runtime/supervisor"
	"hwbot/internal/schedule"
	"hwbot/internal/storage"
	"hwbot/internal/tracker"
	"hwbot/internal/transport"
	"hwbot/internal/transport/telegram"
	"hwbot/pkg/logx"
	"hwbot/pkg/systemd"
)

// messenger is what the daemon needs from its chat transport: the fixed
// notification target plus an explicit target for the log sink.
type messenger interface {
	transport.Notifier
	transport.Sender
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	sd    *systemd.Notifier

	messenger messenger
	loop      *poller.Loop
	journal   *journal.Journal
}

// New loads configuration and credentials and builds every component.
// Missing credentials yield a failure of kind MissingCredentials; the caller
// must not start the daemon in that case.
func New(cfgPath string, getenv func(string) string) (*App, error) {
	return newApp(cfgPath, getenv, nil)
}

func newApp(cfgPath string, getenv func(string) string, m messenger) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetLogger(logx.NewConsole("info").With(logx.String("comp", "config")))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	creds, err := config.LoadCredentials(getenv)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateCredentials(cfg, creds); err != nil {
		return nil, err
	}
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		return config.ValidateCredentials(c, creds)
	})

	if m == nil {
		bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
		ad, err := telegram.New(mapTelegramConfig(cfg, creds), bootLog)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		m = ad
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg), m)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgm:      cfgm,
		log:       log.With(logx.String("comp", "app")),
		logs:      logSvc,
		bus:       eventbus.New(),
		messenger: m,
		sd:        systemd.New(log.With(logx.String("comp", "systemd"))),
	}

	sc := mapStorageConfig(cfg)
	if a.store, err = storage.Open(sc, log.With(logx.String("comp", "storage"))); err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if a.store != nil {
		a.log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
		a.journal = journal.New(a.bus, a.store, log.With(logx.String("comp", "journal")))
	}

	cat, err := catalog.New(cfg.Statuses)
	if err != nil {
		a.close()
		return nil, err
	}
	sched, err := schedule.Parse(cfg.Poll.Schedule)
	if err != nil {
		a.close()
		return nil, err
	}

	g := gate.New()
	a.restoreGate(g)

	a.loop = poller.New(
		endpoint.New(mapEndpointConfig(cfg, creds), log.With(logx.String("comp", "endpoint"))),
		m,
		tracker.New(cat),
		g,
		log.With(logx.String("comp", "poller")),
		poller.Options{
			InitialCursor: cfg.Poll.InitialCursor,
			FirstItemOnly: cfg.Poll.FirstItemOnly,
			Schedule:      sched,
			Bus:           a.bus,
			OnCycle:       a.onCycle,
		},
	)
	return a, nil
}

// restoreGate seeds duplicate suppression with the last message delivered
// by a previous run, so a restart does not repeat it.
func (a *App) restoreGate(g *gate.Gate) {
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	last, ok, err := a.store.LastSent(ctx)
	if err != nil {
		a.log.Warn("cannot restore last sent message", logx.Err(err))
		return
	}
	if ok {
		g.Restore(last.Text)
		a.log.Debug("restored last sent message", logx.Time("at", last.At))
	}
}

func (a *App) onCycle(out poller.Outcome) {
	a.sd.Watchdog()
	if out.OK() {
		a.sd.Status(fmt.Sprintf("ok, %d item(s), cursor %d", out.Items, out.Cursor))
	} else {
		a.sd.Status("failing: " + failure.KindOf(out.Err).String())
	}
}

// Loop exposes the poll loop (cursor, schedule) for diagnostics.
func (a *App) Loop() *poller.Loop { return a.loop }

// Start launches the supervised goroutines and reports readiness.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	if a.journal != nil {
		a.sup.Go("journal", a.journal.Run)
	}
	a.sup.GoRestart("poller", a.loop.Run)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("config.reload", a.reloadLoop)

	a.sd.Ready()
	a.log.Info("started",
		logx.String("config", a.cfgm.Path()),
		logx.String("schedule", a.loop.Schedule().String()),
		logx.Duration("watchdog", a.sd.WatchdogInterval()),
	)
	if wd := a.sd.WatchdogInterval(); wd > 0 && wd <= a.loop.Schedule().Delay(time.Now()) {
		a.log.Warn("systemd WatchdogSec is shorter than the poll interval; the unit will be killed between cycles",
			logx.Duration("watchdog", wd))
	}
	return nil
}

// Stop cancels the loop (interrupting its sleep) and closes sinks.
func (a *App) Stop(ctx context.Context) error {
	a.sd.Stopping()
	var err error
	if a.sup != nil {
		stepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = a.sup.Stop(stepCtx)
		cancel()
		if err != nil {
			a.log.Warn("supervisor stop", logx.Err(err))
		}
	}
	a.log.Info("stopped", logx.Int64("cursor", a.loop.Cursor()))
	a.close()
	return err
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}
	if a.logs != nil {
		a.logs.Close()
	}
}

// reloadLoop applies hot-reloadable sections: logging and poll settings.
func (a *App) reloadLoop(ctx context.Context) error {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-sub:
			if !ok {
				return nil
			}
			a.applyConfig(last, cfg)
			last = cfg
		}
	}
}

func (a *App) applyConfig(prev, cfg *config.Config) {
	sections, attrs := config.SummarizeChange(prev, cfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	a.log.Info("config changed", append([]logx.Field{logx.String("sections", strings.Join(sections, ","))}, attrs...)...)
	if pending := config.RestartRequired(sections); len(pending) > 0 {
		a.log.Warn("restart required for changes to take effect", logx.String("sections", strings.Join(pending, ",")))
	}

	a.logs.Apply(mapLoggingConfig(cfg))

	sched, err := schedule.Parse(cfg.Poll.Schedule)
	if err != nil {
		// Validated before publish; keep the running schedule anyway.
		a.log.Warn("invalid poll.schedule; keeping previous", logx.Err(err))
	} else {
		a.loop.SetSchedule(sched)
	}
	a.loop.SetFirstItemOnly(cfg.Poll.FirstItemOnly)
}
