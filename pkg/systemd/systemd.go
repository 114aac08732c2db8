// Package systemd reports service lifecycle to systemd through sd_notify.
// Outside a Type=notify unit every call is a no-op.
package systemd

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends lifecycle states. The zero value is ready to use.
type Notifier struct{}

func (n Notifier) send(state string) (bool, error) {
	return daemon.SdNotify(false, state)
}

// Ready tells systemd start-up finished.
func (n Notifier) Ready() (bool, error) { return n.send(daemon.SdNotifyReady) }

// Stopping tells systemd shutdown began.
func (n Notifier) Stopping() (bool, error) { return n.send(daemon.SdNotifyStopping) }

// Reloading tells systemd a configuration reload began. Ready must follow
// once the reload finished.
func (n Notifier) Reloading() (bool, error) { return n.send(daemon.SdNotifyReloading) }

// Status sets the free-form status line shown by systemctl status.
func (n Notifier) Status(format string, args ...any) (bool, error) {
	return n.send("STATUS=" + fmt.Sprintf(format, args...))
}

// WatchdogInterval returns half the configured watchdog timeout, or 0 when
// the watchdog is off.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0
	}
	return d / 2
}

// Watchdog pings the systemd watchdog.
func (n Notifier) Watchdog() (bool, error) { return n.send(daemon.SdNotifyWatchdog) }
