// Package systemd reports service state to systemd via sd_notify.
//
// Outside a Type=notify unit NOTIFY_SOCKET is unset and every call is a
// cheap no-op.
package systemd

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"hwbot/pkg/logx"
)

type Notifier struct {
	log      logx.Logger
	watchdog time.Duration

	// notify is daemon.SdNotify; swapped in tests.
	notify func(unsetEnv bool, state string) (bool, error)
}

func New(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	n := &Notifier{log: log, notify: daemon.SdNotify}
	if d, err := daemon.SdWatchdogEnabled(false); err != nil {
		log.Warn("systemd watchdog config unreadable", logx.Err(err))
	} else {
		n.watchdog = d
	}
	return n
}

// WatchdogInterval is WatchdogSec of the unit, or 0 when disabled.
func (n *Notifier) WatchdogInterval() time.Duration { return n.watchdog }

func (n *Notifier) Ready() { n.send(daemon.SdNotifyReady) }

func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Watchdog pings the watchdog if the unit has one.
func (n *Notifier) Watchdog() {
	if n.watchdog > 0 {
		n.send(daemon.SdNotifyWatchdog)
	}
}

// Status sets the free-form STATUS= line shown by systemctl status.
func (n *Notifier) Status(s string) { n.send("STATUS=" + s) }

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify", logx.String("state", state))
	}
}
