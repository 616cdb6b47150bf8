package dispatch

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywave-gnss/gnssd/internal/lexer"
	"github.com/skywave-gnss/gnssd/internal/session"
)

func newTestDaemon() *Daemon {
	return New(nil, nil)
}

// TestFanOutJSONSubscriber covers testable scenario S9: a watcher/json
// subscriber sees exactly one JSON report per accepted cycle frame.
func TestFanOutJSONSubscriber(t *testing.T) {
	d := newTestDaemon()
	server, client := net.Pipe()
	defer client.Close()
	sub := newSubscriber(server)
	sub.Policy = Policy{Watcher: true, JSON: true}
	d.subscribers = append(d.subscribers, sub)

	s := session.New("tcp://example.invalid:2101", nil, nil)
	s.CurrentFix.Lat, s.CurrentFix.Lon = 34.078, -70.739
	s.CurrentFix.Mode = 3
	entry := &deviceEntry{Path: "tcp://example.invalid:2101", Session: s}

	done := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(client).ReadString('\n')
		done <- line
	}()

	d.fanOut(entry, s, lexer.Frame{Type: lexer.NMEA}, session.LatlonSet|session.ModeSet)

	select {
	case line := <-done:
		assert.Contains(t, line, `"class":"TPV"`)
		assert.Contains(t, line, `"mode":3`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber write")
	}
}

// TestFanOutDevPathFilter checks that a subscriber with a devpath filter
// only receives reports for the matching device.
func TestFanOutDevPathFilter(t *testing.T) {
	d := newTestDaemon()
	server, client := net.Pipe()
	defer client.Close()
	sub := newSubscriber(server)
	sub.Policy = Policy{Watcher: true, JSON: true, DevPath: "/dev/ttyUSB9"}
	d.subscribers = append(d.subscribers, sub)

	s := session.New("/dev/ttyUSB0", nil, nil)
	entry := &deviceEntry{Path: "/dev/ttyUSB0", Session: s}

	wroteCh := make(chan struct{})
	go func() {
		buf := make([]byte, 16)
		_ = client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		_, err := client.Read(buf)
		if err == nil {
			close(wroteCh)
		}
	}()

	d.fanOut(entry, s, lexer.Frame{Type: lexer.NMEA}, session.LatlonSet)

	select {
	case <-wroteCh:
		t.Fatal("subscriber with non-matching devpath filter should not receive the report")
	case <-time.After(150 * time.Millisecond):
	}
}

// TestRelayRTCMSkipsSource covers testable scenario S8: device B's
// RTCMWriter receives A's RTCM3 bytes, A does not receive its own frame.
func TestRelayRTCMSkipsSource(t *testing.T) {
	d := newTestDaemon()

	var received []byte
	var selfCalls int

	srcDriver := &session.Driver{
		Name: "src",
		RTCMWriter: func(s *session.Session, payload []byte) error {
			selfCalls++
			return nil
		},
	}
	dstDriver := &session.Driver{
		Name: "dst",
		RTCMWriter: func(s *session.Session, payload []byte) error {
			received = append([]byte(nil), payload...)
			return nil
		},
	}

	srcSession := session.New("tcp://a.invalid:2101", []*session.Driver{srcDriver}, nil)
	srcSession.Driver = srcDriver
	dstSession := session.New("tcp://b.invalid:2101", []*session.Driver{dstDriver}, nil)
	dstSession.Driver = dstDriver

	src := &deviceEntry{Path: "A", Session: srcSession}
	dst := &deviceEntry{Path: "B", Session: dstSession}
	d.devices = []*deviceEntry{src, dst}

	payload := []byte{0xD3, 0x00, 0x03, 0xAA, 0xBB, 0xCC}
	d.relayRTCM(src, lexer.Frame{Type: lexer.RTCM3, Payload: payload})

	require.Equal(t, payload, received)
	assert.Zero(t, selfCalls)
}

// TestRelayRTCMRejectsOversizedFrame ensures an over-limit payload is
// never handed to a driver's RTCMWriter.
func TestRelayRTCMRejectsOversizedFrame(t *testing.T) {
	d := newTestDaemon()
	called := false
	dstDriver := &session.Driver{
		RTCMWriter: func(s *session.Session, payload []byte) error {
			called = true
			return nil
		},
	}
	dstSession := session.New("tcp://b.invalid:2101", nil, nil)
	dstSession.Driver = dstDriver
	src := &deviceEntry{Path: "A", Session: session.New("tcp://a.invalid:2101", nil, nil)}
	dst := &deviceEntry{Path: "B", Session: dstSession}
	d.devices = []*deviceEntry{src, dst}

	d.relayRTCM(src, lexer.Frame{Type: lexer.RTCM3, Payload: make([]byte, rtcm3Max+1)})
	assert.False(t, called)
}

// TestShouldReleaseGraceAndNoWait covers spec §4.E.4's release policy
// and its no-wait override.
func TestShouldReleaseGraceAndNoWait(t *testing.T) {
	d := newTestDaemon()
	e := &deviceEntry{Path: "/dev/ttyUSB0", recognizedType: true}

	assert.False(t, d.shouldRelease(e, time.Now()), "release pending should start, not fire immediately")
	assert.False(t, e.releasePending.IsZero())

	later := e.releasePending.Add(ReleaseTimeout + time.Second)
	assert.True(t, d.shouldRelease(e, later))

	d.noWait = true
	assert.False(t, d.shouldRelease(e, later))
}

func TestShouldReleaseSkipsUnrecognizedDevice(t *testing.T) {
	d := newTestDaemon()
	e := &deviceEntry{Path: "/dev/ttyUSB0", recognizedType: false}
	assert.False(t, d.shouldRelease(e, time.Now().Add(time.Hour)))
}

func TestSynthesizeGGAHasValidChecksum(t *testing.T) {
	f := session.Fix{
		Time: time.Date(2026, 7, 29, 18, 19, 8, 0, time.UTC),
		Lat:  34.078403, Lon: -70.739944,
		AltMSL: 495.144, Status: session.StatusRTKFix,
	}
	sentence := synthesizeGGA(f)
	require.True(t, strings.HasPrefix(sentence, "$GPGGA,"))
	trimmed := strings.TrimRight(sentence, "\r\n")
	star := strings.LastIndex(trimmed, "*")
	require.Greater(t, star, 0)
	body := trimmed[:star]
	assert.Equal(t, trimmed[star+1:], formatChecksum(lexer.NMEAChecksum([]byte(body))))
}

func formatChecksum(b byte) string {
	const hex = "0123456789ABCDEF"
	return string([]byte{hex[b>>4], hex[b&0xF]})
}

func TestAcceptSubscriberOverflowRejectsPolitely(t *testing.T) {
	d := newTestDaemon()
	d.maxSubscribers = 1
	d.subscribers = append(d.subscribers, &Subscriber{ID: "existing"})

	server, client := net.Pipe()
	defer client.Close()

	go d.acceptSubscriber(server)

	buf := make([]byte, 256)
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), `"class":"ERROR"`)
	assert.Len(t, d.subscribers, 1)
}
