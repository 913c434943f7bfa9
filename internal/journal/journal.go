// Package journal records poll-loop events into the audit store.
package journal

import (
	"context"
	"time"

	"hwbot/internal/eventbus"
	"hwbot/internal/poller"
	"hwbot/internal/storage"
	"hwbot/pkg/logx"
)

// writeTimeout bounds one store write so a stuck disk cannot pin the writer.
const writeTimeout = 5 * time.Second

type Journal struct {
	store storage.Store
	log   logx.Logger

	events <-chan eventbus.Event
	unsub  func()
}

// New subscribes to bus immediately, so events published before Run starts
// are buffered rather than lost.
func New(bus eventbus.Bus, store storage.Store, log logx.Logger) *Journal {
	if log.IsZero() {
		log = logx.Nop()
	}
	ch, unsub := bus.Subscribe(128, "cycle.", "notification.")
	return &Journal{store: store, log: log, events: ch, unsub: unsub}
}

// Run writes events until ctx is done, then drains what is already buffered.
func (j *Journal) Run(ctx context.Context) error {
	defer j.unsub()
	for {
		select {
		case <-ctx.Done():
			j.drain()
			return nil
		case e, ok := <-j.events:
			if !ok {
				return nil
			}
			j.write(e)
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case e, ok := <-j.events:
			if !ok {
				return
			}
			j.write(e)
		default:
			return
		}
	}
}

func (j *Journal) write(e eventbus.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch d := e.Data.(type) {
	case poller.CycleEvent:
		err = j.store.AppendCycle(ctx, cycleRecord(e, d))
	case poller.NotificationEvent:
		err = j.store.AppendNotification(ctx, notificationRecord(e, d))
	default:
		j.log.Debug("journal: ignoring event", logx.String("type", e.Type))
		return
	}
	if err != nil {
		j.log.Warn("journal write failed", logx.String("type", e.Type), logx.Err(err))
	}
}

func cycleRecord(e eventbus.Event, d poller.CycleEvent) storage.CycleRecord {
	return storage.CycleRecord{
		At:      e.Time,
		CycleID: d.CycleID,
		OK:      e.Type == poller.EventCycleSucceeded,
		Kind:    d.Kind,
		Error:   d.Error,
		Cursor:  d.Cursor,
		Items:   d.Items,
		Sent:    d.Sent,
		TookMS:  d.Took.Milliseconds(),
	}
}

func notificationRecord(e eventbus.Event, d poller.NotificationEvent) storage.NotificationRecord {
	outcome := storage.OutcomeSent
	switch e.Type {
	case poller.EventNotificationSuppressed:
		outcome = storage.OutcomeSuppressed
	case poller.EventNotificationFailed:
		outcome = storage.OutcomeFailed
	}
	return storage.NotificationRecord{
		At:      e.Time,
		CycleID: d.CycleID,
		Outcome: outcome,
		Failure: d.Failure,
		Text:    d.Text,
		Error:   d.Error,
	}
}
