package dispatch

import (
	"context"
	"time"

	"github.com/skywave-gnss/gnssd/internal/session"
)

// housekeeping applies the device-lifecycle and reconnect policy (spec
// §4.E.4): release devices with no watcher after ReleaseTimeout, retry
// devices that went offline no more often than DeviceReconnect, and
// advance the autobaud hunt (or retry NTRIP) after a device has stayed
// quiet for MINIMUM_QUIET_TIME × min_cycle.
func (d *Daemon) housekeeping(ctx context.Context) {
	now := time.Now()
	kept := d.devices[:0]
	for _, e := range d.devices {
		if d.shouldRelease(e, now) {
			d.logger.WithField("device", e.Path).Info("dispatch: releasing idle device")
			_ = e.Session.Deactivate()
			continue
		}
		kept = append(kept, e)
	}
	d.devices = kept

	for _, e := range d.devices {
		d.reconnectIfNeeded(ctx, e, now)
		d.quietPeriodCheck(e, now)
	}
}

// shouldRelease implements spec §4.E.4 "A device with a recognized
// packet type but zero subscribers enters release pending after a
// grace period and is then closed." A device with no recognized packet
// type remains open, and no-wait mode disables release entirely.
func (d *Daemon) shouldRelease(e *deviceEntry, now time.Time) bool {
	if d.noWait || !e.recognizedType {
		return false
	}
	watched := false
	for _, sub := range d.subscribers {
		if e.watchedBy(sub) {
			watched = true
			break
		}
	}
	if watched {
		e.releasePending = time.Time{}
		return false
	}
	if e.releasePending.IsZero() {
		e.releasePending = now
		return false
	}
	return now.Sub(e.releasePending) >= ReleaseTimeout
}

// reconnectIfNeeded retries a device whose transport went offline (spec
// §4.E.4 "A device needing reconnection ... retried no more often than
// once per DEVICE_RECONNECT seconds"); PPS-only devices have no data
// channel to reopen and are skipped.
func (d *Daemon) reconnectIfNeeded(ctx context.Context, e *deviceEntry, now time.Time) {
	if e.Session.SourceType == session.SourcePPSOnly {
		return
	}
	if !e.Session.OnlineSince().IsZero() {
		return
	}
	if now.Sub(e.lastReconnect) < DeviceReconnect {
		return
	}
	e.lastReconnect = now
	if _, err := e.Session.Open(ctx); err != nil {
		d.logger.WithError(err).WithField("device", e.Path).Debug("dispatch: reconnect attempt failed")
		return
	}
	e.Session.Activate()
}

// quietPeriodCheck advances the autobaud hunt (TTY) or retries an NTRIP
// open after MINIMUM_QUIET_TIME × min_cycle of silence (spec §4.E.4).
func (d *Daemon) quietPeriodCheck(e *deviceEntry, now time.Time) {
	if e.lastActivity.IsZero() {
		e.lastActivity = now
		return
	}
	minCycle := time.Second
	if e.Session.Driver != nil && e.Session.Driver.MinCycle > 0 {
		minCycle = e.Session.Driver.MinCycle
	}
	quietFor := minimumQuietTimes * minCycle
	if now.Sub(e.lastActivity) < quietFor {
		return
	}
	if e.Session.IsTTY() {
		_ = e.Session.AdvanceHunt()
	} else if e.Session.ServiceType == session.ServiceNTRIP {
		e.Session.ClearOnline()
	}
	e.lastActivity = now
}
