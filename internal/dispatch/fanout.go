package dispatch

import (
	"net"
	"time"

	"github.com/skywave-gnss/gnssd/internal/lexer"
	"github.com/skywave-gnss/gnssd/internal/session"
)

// fanOut implements `all_reports` (spec §4.E.2): relay RTCM to other
// devices, then write to every matching watcher. The time latch runs in
// the session engine before a frame reaches here; fanOut does not
// propagate time to other devices.
func (d *Daemon) fanOut(dev *deviceEntry, s *session.Session, f lexer.Frame, mask session.ReportMask) {
	if f.Type != lexer.BAD {
		dev.recognizedType = true
		dev.lastActivity = time.Now()
		dev.releasePending = time.Time{}
	}

	if mask&(session.RTCM2Set|session.RTCM3Set) != 0 {
		d.relayRTCM(dev, f)
	}

	for _, sub := range d.subscribers {
		if !dev.watchedBy(sub) {
			continue
		}
		d.writeReport(sub, dev, f, mask)
	}
}

// relayRTCM fans a correction frame out to every other device whose
// driver exposes an RTCMWriter, and to the optional embedded caster
// mountpoint (spec §4.E.2 step 2). Oversized frames are rejected rather
// than relayed. Fire-and-forget: a write error on one target never
// blocks the source device or the others (spec §5 "RTCM relay writes
// are fire-and-forget best-effort").
func (d *Daemon) relayRTCM(src *deviceEntry, f lexer.Frame) {
	limit := rtcm2Max
	if f.Type == lexer.RTCM3 {
		limit = rtcm3Max
	}
	if len(f.Payload) > limit {
		d.logger.WithField("device", src.Path).WithField("len", len(f.Payload)).
			Warn("dispatch: oversized RTCM frame rejected for relay")
		return
	}
	for _, other := range d.devices {
		if other == src {
			continue
		}
		if other.Session.Driver == nil || other.Session.Driver.RTCMWriter == nil {
			continue
		}
		if err := other.Session.WriteRTCM(f.Payload); err != nil {
			d.logger.WithError(err).WithField("device", other.Path).Warn("dispatch: RTCM relay write failed")
		}
	}
	if d.casterPublish != nil {
		if _, err := d.casterPublish.Write(f.Payload); err != nil {
			d.logger.WithError(err).Warn("dispatch: caster mountpoint publish failed")
		}
	}
	if d.upstreamPush != nil {
		cp := append([]byte(nil), f.Payload...) // the channel outlives this tick; the lexer reuses f.Payload's backing array
		select {
		case d.upstreamPush <- cp:
		default:
			// upstream push channel full: drop rather than block the
			// source device's read loop (spec §5 relay is best-effort).
		}
	}
}

// writeReport emits the bytes one subscriber's policy calls for, per
// accepted frame (spec §4.E.2 step 4). Writes are serialized by the
// process-wide reporting mutex (spec §5) and guarded by a short
// deadline so a stalled client can't block the event loop; back-pressure
// policy (spec §4.E.3) disconnects on short write or prolonged idle.
func (d *Daemon) writeReport(sub *Subscriber, dev *deviceEntry, f lexer.Frame, mask session.ReportMask) {
	var chunks [][]byte

	switch {
	case sub.Policy.RawLevel >= 1 && isTextual(f.Type):
		chunks = append(chunks, f.Payload)
	case sub.Policy.RawLevel == 1 && !isTextual(f.Type):
		chunks = append(chunks, []byte(hexDump(f.Payload)))
	case sub.Policy.RawLevel >= 2:
		chunks = append(chunks, f.Payload)
	}

	if sub.Policy.NMEA && mask&(session.LatlonSet|session.TimeSet|session.AltitudeSet) != 0 {
		fix := dev.Session.CurrentFix
		chunks = append(chunks, []byte(synthesizeGGA(fix)))
		if mask&session.SpeedSet != 0 || mask&session.TrackSet != 0 {
			chunks = append(chunks, []byte(synthesizeRMC(fix, dev.Session.LastFix)))
		}
	}

	if sub.Policy.JSON {
		fix := dev.Session.CurrentFix
		if mask&(session.LatlonSet|session.AltitudeSet|session.TimeSet|session.ModeSet) != 0 {
			chunks = append(chunks, fixToTPV(dev.Path, fix))
		}
		if mask&session.DopSet != 0 {
			chunks = append(chunks, fixToSky(dev.Path, fix))
		}
	}

	if len(chunks) == 0 {
		return
	}

	if !sub.Policy.Split24 {
		var joined []byte
		for _, c := range chunks {
			joined = append(joined, c...)
		}
		chunks = [][]byte{joined}
	}

	for _, c := range chunks {
		d.writeSubscriberBytes(sub, c)
	}
}

// writeSubscriberBytes performs one guarded write, disconnecting the
// subscriber on short write or an error other than a transient timeout
// (spec §4.E.3).
func (d *Daemon) writeSubscriberBytes(sub *Subscriber, b []byte) {
	d.reportMu.Lock()
	_ = sub.Conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	n, err := sub.Conn.Write(b)
	d.reportMu.Unlock()

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			if time.Since(sub.idleSince()) > NoReadTimeout {
				d.disconnectSubscriber(sub)
			}
			return
		}
		d.disconnectSubscriber(sub)
		return
	}
	if n < len(b) {
		d.disconnectSubscriber(sub)
	}
}

func (d *Daemon) disconnectSubscriber(sub *Subscriber) {
	d.logger.WithField("subscriber", sub.ID).Info("dispatch: disconnecting subscriber (write back-pressure)")
	_ = sub.Conn.Close()
	for i, s := range d.subscribers {
		if s == sub {
			d.subscribers = append(d.subscribers[:i], d.subscribers[i+1:]...)
			return
		}
	}
}
