// Package systemd integrates the daemon lifecycle with systemd: readiness
// notification and watchdog keepalives when running as a unit with
// Type=notify. Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd the service finished starting up.
func NotifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("systemd ready notification failed", "error", err)
		return
	}
	if sent {
		logger.Debug("Notified systemd: ready")
	}
}

// NotifyStopping tells systemd the service began shutting down.
func NotifyStopping(logger *slog.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logger.Warn("systemd stopping notification failed", "error", err)
	}
}

// StartWatchdog sends keepalives at half the configured WatchdogSec
// interval until the context is cancelled. Returns immediately when no
// watchdog is configured.
func StartWatchdog(ctx context.Context, logger *slog.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		logger.Debug("systemd watchdog enabled", "interval", interval)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					logger.Warn("systemd watchdog ping failed", "error", err)
				}
			}
		}
	}()
}
