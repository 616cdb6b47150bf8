package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/skywave-gnss/gnssd/internal/lexer"
)

// ErrPlaceholding is returned by Open when the device should be retried
// later rather than given up on (NTRIP in-progress, PPS-only devices
// with no data channel — spec §4.D.1).
var ErrPlaceholding = errors.New("session: placeholding, retry later")

// conn is the minimal surface Session needs from whatever transport
// Open resolved to: a non-blocking-ish reader/writer/closer. Serial,
// TCP and UDP all satisfy it via net.Conn / serial.Port.
type conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Session is the per-device state the engine owns (spec §3 "Device
// session"). Not safe for concurrent use: the dispatcher's event loop
// is the session's sole owner, per spec §5.
type Session struct {
	Path        string
	SourceType  SourceType
	ServiceType ServiceType

	Lexer *lexer.Lexer

	Drivers        []*Driver
	Driver         *Driver
	lastController *Driver // sticky driver memory (spec §4.D.2)
	packetsOnDrv   int

	CurrentFix, LastFix, PrevFix Fix

	sorTime      time.Time // start-of-reporting-cycle (spec §4.D.3)
	sorCharCount uint64
	lastReadTime time.Time

	onlineSince time.Time

	baudIndex int
	fixedBaud bool
	isTTY     bool
	serialPort serial.Port

	netConn  conn
	httpConn net.Conn // raw conn backing the NTRIP HTTP-ish handshake

	ntrip ntripState

	timeSink func(gpsTime, systemTime time.Time)
	validFixCount int
	lastLatchedTime time.Time
	batteryRTC bool

	logger logrus.FieldLogger
}

// New returns a Session ready for Open. drivers is the ordered driver
// list the engine scans on every non-matching frame (spec §4.D.2).
func New(path string, drivers []*Driver, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		Path:    path,
		Drivers: drivers,
		Lexer:   lexer.New(),
		logger:  logger.WithField("device", path),
	}
}

// SetTimeSink installs the clock-discipline hook the time latch (spec
// §4.D.5) hands timestamped samples to.
func (s *Session) SetTimeSink(f func(gpsTime, systemTime time.Time)) { s.timeSink = f }

// SetBatteryRTC disables the "needs 3 valid fixes first" guard on the
// time latch (spec §4.D.5 "battery-RTC override").
func (s *Session) SetBatteryRTC(on bool) { s.batteryRTC = on }

// Open resolves Path to a transport and opens it (spec §4.D.1). The URI
// prefixes match spec §6 "Southbound — device URIs".
func (s *Session) Open(ctx context.Context) (OpenResult, error) {
	switch {
	case strings.HasPrefix(s.Path, "tcp://"):
		return s.openTCP(ctx)
	case strings.HasPrefix(s.Path, "udp://"):
		return s.openUDP(ctx)
	case strings.HasPrefix(s.Path, "ntrip://"):
		s.ServiceType = ServiceNTRIP
		return s.openNTRIP(ctx)
	case strings.HasPrefix(s.Path, "dgpsip://"):
		s.ServiceType = ServiceDGPSIP
		return s.openTCPHost(ctx, strings.TrimPrefix(s.Path, "dgpsip://"), 2101)
	case strings.HasPrefix(s.Path, "gpsd://"):
		s.SourceType = SourceGPSD
		return s.openTCPHost(ctx, strings.TrimPrefix(s.Path, "gpsd://"), 2947)
	case strings.HasPrefix(s.Path, "nmea2000://"):
		s.SourceType = SourceCAN
		return Unallocated, fmt.Errorf("session: nmea2000 CAN transport not implemented by this core")
	default:
		return s.openSerial()
	}
}

func splitHostPort(hostport string, defaultPort int) (string, string) {
	if strings.HasPrefix(hostport, "[") {
		// bracketed IPv6 literal, spec §6
		if idx := strings.LastIndex(hostport, "]:"); idx >= 0 {
			return hostport[:idx+1], hostport[idx+2:]
		}
		return hostport, strconv.Itoa(defaultPort)
	}
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, strconv.Itoa(defaultPort)
	}
	return host, port
}

func (s *Session) openTCP(ctx context.Context) (OpenResult, error) {
	s.SourceType = SourceTCP
	return s.openTCPHost(ctx, strings.TrimPrefix(s.Path, "tcp://"), 0)
}

func (s *Session) openTCPHost(ctx context.Context, hostport string, defaultPort int) (OpenResult, error) {
	host, port := splitHostPort(hostport, defaultPort)
	d := net.Dialer{}
	c, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return Unallocated, fmt.Errorf("session: tcp dial %s: %w", hostport, err)
	}
	s.netConn = c
	s.onlineSince = time.Now()
	return Opened, nil
}

func (s *Session) openUDP(ctx context.Context) (OpenResult, error) {
	s.SourceType = SourceUDP
	host, port := splitHostPort(strings.TrimPrefix(s.Path, "udp://"), 0)
	d := net.Dialer{}
	c, err := d.DialContext(ctx, "udp", net.JoinHostPort(host, port))
	if err != nil {
		return Unallocated, fmt.Errorf("session: udp dial: %w", err)
	}
	s.netConn = c
	s.onlineSince = time.Now()
	return Opened, nil
}

func (s *Session) openSerial() (OpenResult, error) {
	s.SourceType = SourceSerial
	s.isTTY = true
	// path[:baud[:...]]: only the device name and the optional baud are
	// read; any further fields are ignored, and the port always opens
	// with no parity and one stop bit.
	parts := strings.Split(s.Path, ":")
	portName := parts[0]
	baud := huntLadder[0].Baud
	s.fixedBaud = false
	if len(parts) > 1 && parts[1] != "" {
		if b, err := strconv.Atoi(parts[1]); err == nil {
			baud = b
			s.fixedBaud = true
		}
	}
	mode := &serial.Mode{BaudRate: baud, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return Unallocated, fmt.Errorf("session: open serial %s: %w", portName, err)
	}
	_ = port.SetReadTimeout(100 * time.Millisecond)
	s.serialPort = port
	s.onlineSince = time.Now()
	return Opened, nil
}

func (s *Session) openNTRIP(ctx context.Context) (OpenResult, error) {
	u, err := url.Parse(s.Path)
	if err != nil {
		return Unallocated, fmt.Errorf("session: bad ntrip uri: %w", err)
	}
	switch s.ntrip.state {
	case ntripClosed, ntripInit, ntripErr:
		if !s.ntrip.lastAttempt.IsZero() && time.Since(s.ntrip.lastAttempt) < ntripReconnectInterval {
			return Placeholding, ErrPlaceholding
		}
		s.ntrip.lastAttempt = time.Now()
		if err := s.ntripConnect(ctx, u); err != nil {
			s.ntrip.state = ntripClosed
			return Placeholding, err
		}
		return Opened, nil
	case ntripEstablished:
		return Opened, nil
	default:
		return Placeholding, ErrPlaceholding
	}
}

// Activate runs driver probe-detect (for sensor sources), fires the
// "reactivate" event on a known sticky driver, and initializes the
// lexer (spec §4.D.1).
func (s *Session) Activate() {
	s.Lexer = lexer.New()
	s.onlineSince = time.Now()
	if s.ServiceType == ServiceNTRIP {
		s.Lexer.SetChunked(true)
	}
	if s.ServiceType != ServiceSensor {
		return
	}
	for _, d := range s.Drivers {
		if d.ProbeDetect != nil && d.ProbeDetect(s) {
			s.switchDriver(d, EventActivate)
			return
		}
	}
	if s.lastController != nil {
		s.switchDriver(s.lastController, EventReactivate)
	}
}

// read pulls one chunk of bytes from whatever transport is open,
// feeding the lexer. A read timeout on a network source returns
// (0, nil); io.EOF from the transport is passed through, except on UDP,
// where it is swallowed.
func (s *Session) read() (int, error) {
	buf := make([]byte, 4096)
	var n int
	var err error
	switch {
	case s.serialPort != nil:
		n, err = s.serialPort.Read(buf)
	case s.netConn != nil:
		_ = s.netConn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		n, err = s.netConn.Read(buf)
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("session: no open transport")
	}
	if n > 0 {
		if s.Lexer.CharCount() == 0 || time.Since(s.lastReadTime) > driverMinCycle(s.Driver)/4 {
			s.sorTime = time.Now()
			s.sorCharCount = s.Lexer.CharCount()
		}
		s.lastReadTime = time.Now()
		s.Lexer.Feed(buf[:n])
	}
	if err == io.EOF && s.SourceType == SourceUDP {
		return n, nil
	}
	return n, err
}

func driverMinCycle(d *Driver) time.Duration {
	if d == nil || d.MinCycle == 0 {
		return time.Second
	}
	return d.MinCycle
}

// Poll performs one read-and-parse step, returning the mask of the
// single accepted frame it dispatched, if any (spec §4.D.1).
func (s *Session) Poll() (ReportMask, error) {
	if _, err := s.read(); err != nil && err != io.EOF {
		return 0, err
	}
	frame, ok := s.Lexer.Next()
	if !ok {
		return 0, nil
	}
	return s.dispatchFrame(frame), nil
}

// FrameHandler is invoked once per accepted frame during Multipoll
// (spec §4.D.1, "handler"). mask is the dispatch result; relay/fan-out
// concerns live in the dispatcher, not here.
type FrameHandler func(s *Session, frame lexer.Frame, mask ReportMask)

// Multipoll loops calling Poll until the input buffer drains, invoking
// handler per accepted frame, and manages NTRIP reconnect pacing (spec
// §4.D.1).
func (s *Session) Multipoll(ctx context.Context, handler FrameHandler) PollStatus {
	if s.ServiceType == ServiceNTRIP && s.ntrip.state != ntripEstablished {
		if _, err := s.openNTRIP(ctx); err != nil {
			return Unchanged
		}
	}
	if _, err := s.read(); err != nil {
		if err == io.EOF {
			return EOFStatus
		}
		return ErrorStatus
	}
	any := false
	for {
		frame, ok := s.Lexer.Next()
		if !ok {
			break
		}
		any = true
		mask := s.dispatchFrame(frame)
		if handler != nil {
			handler(s, frame, mask)
		}
	}
	if !any {
		return Unready
	}
	return Ready
}

// dispatchFrame routes an accepted frame to the matching driver,
// handling driver-switch and sticky-driver bookkeeping (spec §4.D.2),
// then folds the parsed result through the fix-merge pass (spec
// §4.D.4) and the time latch (spec §4.D.5).
func (s *Session) dispatchFrame(frame lexer.Frame) ReportMask {
	if frame.Type == lexer.BAD {
		if s.isTTY && !s.fixedBaud && s.Lexer.BadStreak() >= 2 {
			_ = s.AdvanceHunt()
		}
		return 0
	}
	if frame.Type == lexer.RTCM3 {
		return RTCM3Set
	}
	if frame.Type == lexer.RTCM2 {
		return RTCM2Set
	}

	if s.Driver == nil || s.Driver.PacketType != frame.Type {
		if !(s.Driver != nil && frame.Type == lexer.NMEA && s.Driver.ModeSwitcher != nil) {
			s.selectDriver(frame.Type)
		}
	}
	if s.Driver == nil || s.Driver.ParsePacket == nil {
		return 0
	}
	s.packetsOnDrv++
	mask, err := s.Driver.ParsePacket(s, frame)
	if err != nil {
		s.logger.WithError(err).Warn("driver parse error")
		return 0
	}
	if mask&TimeSet != 0 {
		s.latchTime()
	}
	s.mergeFix(mask)
	return mask
}

// selectDriver scans the driver list for one producing packetType,
// switching (and firing the driver-switch event) when found; sticky
// drivers are remembered and reinstated per spec §4.D.2.
func (s *Session) selectDriver(packetType lexer.Type) {
	for _, d := range s.Drivers {
		if d.PacketType == packetType {
			s.switchDriver(d, EventDriverSwitch)
			return
		}
	}
}

func (s *Session) switchDriver(d *Driver, ev Event) {
	if s.Driver != nil && s.Driver.Sticky {
		s.lastController = s.Driver
	}
	s.Driver = d
	s.packetsOnDrv = 0
	if d.EventHook != nil {
		d.EventHook(s, ev)
	}
}

// Deactivate runs the driver's deactivate hook, closes the transport
// and clears the online timestamp (spec §4.D.1).
func (s *Session) Deactivate() error {
	if s.Driver != nil && s.Driver.EventHook != nil {
		s.Driver.EventHook(s, EventDeactivate)
	}
	s.onlineSince = time.Time{}
	var err error
	if s.serialPort != nil {
		err = s.serialPort.Close()
		s.serialPort = nil
	}
	if s.netConn != nil {
		if cerr := s.netConn.Close(); err == nil {
			err = cerr
		}
		s.netConn = nil
	}
	if s.httpConn != nil {
		_ = s.httpConn.Close()
		s.httpConn = nil
	}
	return err
}

// OnlineSince reports when the transport last opened, the zero time if
// not currently online (spec §4.E.4 device lifecycle).
func (s *Session) OnlineSince() time.Time { return s.onlineSince }

// ClearOnline marks the device's online timestamp cleared without
// closing the descriptor (spec §5, "read returning 0 on TCP... tagged
// after the online-timestamp heuristic").
func (s *Session) ClearOnline() { s.onlineSince = time.Time{} }

// WriteRTCM writes a relayed RTCM frame to this session's driver, when
// it exposes an RTCMWriter (spec §4.D.2, §4.E.2 relay step).
func (s *Session) WriteRTCM(payload []byte) error {
	if s.Driver == nil || s.Driver.RTCMWriter == nil {
		return nil
	}
	return s.Driver.RTCMWriter(s, payload)
}

// WriteRaw writes bytes directly to the open transport, used by
// RTCMWriter implementations and by the control-socket hex-payload
// path (out of scope for this core; exposed for callers that implement
// it externally).
func (s *Session) WriteRaw(b []byte) (int, error) {
	switch {
	case s.serialPort != nil:
		return s.serialPort.Write(b)
	case s.netConn != nil:
		return s.netConn.Write(b)
	case s.httpConn != nil:
		return s.httpConn.Write(b)
	default:
		return 0, fmt.Errorf("session: no open transport")
	}
}
