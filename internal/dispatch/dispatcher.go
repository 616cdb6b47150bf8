package dispatch

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skywave-gnss/gnssd/internal/lexer"
	"github.com/skywave-gnss/gnssd/internal/session"
)

// CasterPublisher is the narrow surface the RTCM relay needs from an
// embedded NTRIP caster mountpoint (spec §6 "ntrip://" southbound is
// mirrored northbound as an optional relay target, SPEC_FULL.md domain
// stack table). `pkg/caster.publisher` (returned by
// `InMemorySourceService.Publisher`) satisfies this without the
// dispatcher importing the caster package's HTTP machinery directly.
type CasterPublisher interface {
	Write(p []byte) (int, error)
}

// Daemon is the event-loop owner (spec §3 "Context", §4.E, §5). All
// fields it mutates outside of construction are touched only from
// Run's goroutine; newConnCh and the optional upstream-push channel are
// the sole cross-goroutine channels, matching the single-threaded-cooperative
// model spec §5 requires.
type Daemon struct {
	logger logrus.FieldLogger

	devices     []*deviceEntry
	subscribers []*Subscriber

	maxDevices     int
	maxSubscribers int

	noWait   bool // skip release-on-idle (spec §3 "Lifetimes")
	readOnly bool

	reportMu sync.Mutex // process-wide reporting mutex (spec §5)

	casterPublish CasterPublisher
	upstreamPush  chan<- []byte

	listener  net.Listener
	newConnCh chan net.Conn

	started time.Time
}

// New constructs an empty Daemon. listener may be nil when the caller
// only wants device polling with no subscriber-facing TCP port (e.g.
// in tests).
func New(logger logrus.FieldLogger, listener net.Listener) *Daemon {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Daemon{
		logger:         logger,
		maxDevices:     defaultMaxDevices,
		maxSubscribers: defaultMaxSubscribers,
		listener:       listener,
		newConnCh:      make(chan net.Conn, 8),
		started:        time.Now(),
	}
	return d
}

// SetNoWait toggles no-wait mode: devices are never released for lack
// of subscribers (spec §3 "Lifetimes ... unless the daemon is in
// no-wait mode").
func (d *Daemon) SetNoWait(on bool) { d.noWait = on }

// SetCasterPublisher wires an optional NTRIP-caster mountpoint writer
// that the RTCM relay step also fans correction bytes into (SPEC_FULL.md
// domain stack table, pkg/caster integration).
func (d *Daemon) SetCasterPublisher(p CasterPublisher) { d.casterPublish = p }

// SetUpstreamPush wires an optional outbound channel that every relayed
// RTCM frame is also copied to non-blockingly (SPEC_FULL.md domain
// stack: `pkg/server`'s NTRIP-client push to an upstream caster, fed via
// this channel instead of `pkg/server` reaching back into the dispatcher).
func (d *Daemon) SetUpstreamPush(ch chan<- []byte) { d.upstreamPush = ch }

// AddDevice opens and activates a session, registering it in the bounded
// device table (spec §3 "device table (bounded, fills from front)").
// Returns false if the table is full.
func (d *Daemon) AddDevice(ctx context.Context, path string, drivers []*session.Driver) (*session.Session, bool) {
	if len(d.devices) >= d.maxDevices {
		d.logger.WithField("device", path).Warn("dispatch: device table full, rejecting")
		return nil, false
	}
	s := session.New(path, drivers, d.logger.WithField("device", path))
	if _, err := s.Open(ctx); err != nil {
		d.logger.WithError(err).WithField("device", path).Warn("dispatch: open failed")
	}
	s.Activate()
	entry := &deviceEntry{Path: path, Session: s, lastActivity: time.Now()}
	d.devices = append(d.devices, entry)
	return s, true
}

// RemoveDevice deactivates and drops a device by path.
func (d *Daemon) RemoveDevice(path string) {
	for i, e := range d.devices {
		if e.Path == path {
			_ = e.Session.Deactivate()
			d.devices = append(d.devices[:i], d.devices[i+1:]...)
			return
		}
	}
}

// DeviceCount and SubscriberCount expose table occupancy for tests and
// health reporting.
func (d *Daemon) DeviceCount() int     { return len(d.devices) }
func (d *Daemon) SubscriberCount() int { return len(d.subscribers) }

// DevicePaths returns the path of every device currently registered, in
// registration order. It lets a caster/server integration derive mount
// identity from the actual device table (SPEC_FULL.md domain stack:
// pkg/caster wiring) instead of a name picked before any device exists.
// Safe to call before Run starts or after it has returned; once the
// event loop is live, d.devices is owned by Run's goroutine alone (see
// the Daemon doc comment) and this accessor does not synchronize
// against it.
func (d *Daemon) DevicePaths() []string {
	paths := make([]string, len(d.devices))
	for i, e := range d.devices {
		paths[i] = e.Path
	}
	return paths
}

// Run is the central event loop (spec §4.E.1). It blocks until ctx is
// cancelled. A dedicated goroutine turns the blocking net.Listener.Accept
// into channel sends so the loop body itself never blocks on accept;
// every other suspension point (device read, subscriber read/write) is
// bounded by a short deadline, the Go analog of a 2s-timeout pselect
// that still lets the loop service every fd roughly every tick.
func (d *Daemon) Run(ctx context.Context) error {
	if d.listener != nil {
		go d.acceptLoop(ctx)
	}
	ticker := time.NewTicker(DeviceReawake)
	defer ticker.Stop()
	lastHousekeeping := time.Now()

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return ctx.Err()
		case conn := <-d.newConnCh:
			d.acceptSubscriber(conn)
		case <-ticker.C:
			d.pollDevices(ctx)
			d.pumpSubscribers()
			if time.Since(lastHousekeeping) >= time.Second {
				d.housekeeping(ctx)
				lastHousekeeping = time.Now()
			}
		}
	}
}

func (d *Daemon) acceptLoop(ctx context.Context) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.WithError(err).Warn("dispatch: accept error")
			continue
		}
		select {
		case d.newConnCh <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// acceptSubscriber allocates a subscriber slot, applying SO_LINGER and
// the VERSION greeting (spec §4.E.1). Overflow is a polite reject.
func (d *Daemon) acceptSubscriber(conn net.Conn) {
	if len(d.subscribers) >= d.maxSubscribers {
		d.reportMu.Lock()
		_, _ = conn.Write(errorLine("server busy, too many subscribers"))
		d.reportMu.Unlock()
		_ = conn.Close()
		return
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
		_ = tc.SetNoDelay(true)
	}
	sub := newSubscriber(conn)
	d.reportMu.Lock()
	_, _ = conn.Write(versionLine())
	d.reportMu.Unlock()
	d.subscribers = append(d.subscribers, sub)
	d.logger.WithField("subscriber", sub.ID).Info("dispatch: subscriber attached")
}

// pollDevices runs Multipoll once per device per tick (spec §4.E.1
// "Device hits → multipoll(...)"); unlike the original's fd-readiness
// gating, every device gets a bounded non-blocking read each tick via
// Session's own short read deadline, so behavior is equivalent for the
// fan-out ordering guarantee (spec §8 property 10).
func (d *Daemon) pollDevices(ctx context.Context) {
	for _, entry := range d.devices {
		e := entry
		status := e.Session.Multipoll(ctx, func(s *session.Session, f lexer.Frame, mask session.ReportMask) {
			d.fanOut(e, s, f, mask)
		})
		switch status {
		case session.EOFStatus:
			e.Session.ClearOnline()
		case session.ErrorStatus:
			e.Session.ClearOnline()
		}
	}
}

// pumpSubscribers reads any pending policy/command bytes (grammar out
// of scope per spec §1) just far enough to keep LastActivity honest,
// and prunes dead connections found via a zero-length read error.
func (d *Daemon) pumpSubscribers() {
	buf := make([]byte, 512)
	alive := d.subscribers[:0]
	for _, sub := range d.subscribers {
		_ = sub.Conn.SetReadDeadline(time.Now().Add(time.Millisecond))
		n, err := sub.Conn.Read(buf)
		if n > 0 {
			sub.touch()
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				alive = append(alive, sub)
				continue
			}
			d.logger.WithField("subscriber", sub.ID).Info("dispatch: subscriber disconnected")
			_ = sub.Conn.Close()
			continue
		}
		alive = append(alive, sub)
	}
	d.subscribers = alive
}

// shutdown drains every subscriber and device on context cancellation
// (spec §5 "clean shutdown: deactivate all devices, detach all
// subscribers with SO_LINGER draining").
func (d *Daemon) shutdown() {
	for _, sub := range d.subscribers {
		_ = sub.Conn.Close()
	}
	d.subscribers = nil
	for _, e := range d.devices {
		_ = e.Session.Deactivate()
	}
	d.devices = nil
}
