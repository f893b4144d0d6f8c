// Package systemd integrates with the service manager when the process
// runs as a unit. All calls are no-ops outside systemd, so the same binary
// works interactively.
package systemd

import (
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady signals Type=notify readiness once acquisition is
// configured and streaming.
func NotifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("systemd ready notification failed", "error", err)
		return
	}
	if sent {
		logger.Debug("systemd notified ready")
	}
}

// NotifyStopping signals that shutdown has begun, so the manager extends
// the stop timeout while the device is released.
func NotifyStopping(logger *slog.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logger.Warn("systemd stopping notification failed", "error", err)
	}
}

// NotifyStatus publishes a one-line progress status visible in
// systemctl output.
func NotifyStatus(logger *slog.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if _, err := daemon.SdNotify(false, "STATUS="+msg); err != nil {
		logger.Warn("systemd status notification failed", "error", err)
	}
}
