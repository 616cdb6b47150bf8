// Package dispatch implements the central event loop (spec §4.E): per
// read-ready device or subscriber it drives the session engine, fans
// out reports to matching subscribers, relays RTCM between devices, and
// accepts/times out subscriber connections. It is the single owner of
// every Session and Subscriber it holds (spec §5): the accept loop is
// the only other goroutine touching Daemon state, and it only hands new
// connections across a channel, never mutates a Session directly.
package dispatch

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skywave-gnss/gnssd/internal/session"
)

// Timeouts named in spec §6.
const (
	NoReadTimeout     = 180 * time.Second
	ReleaseTimeout    = 60 * time.Second
	DeviceReawake     = 10 * time.Millisecond
	DeviceReconnect   = 2 * time.Second
	NTRIPReconnect    = 6 * time.Second
	CommandTimeout    = 900 * time.Second
	minimumQuietTimes = 4 // "MINIMUM_QUIET_TIME" multiplier on driver.MinCycle (spec §4.E.4)

	rtcm2Max = 1024
	rtcm3Max = 4096

	defaultMaxDevices     = 128
	defaultMaxSubscribers = 64
)

// Policy is the read-only per-subscriber request the northbound wire
// dialect parses out-of-band and hands to the core (spec §3
// "Subscriber", §6 "Northbound — subscriber protocol").
type Policy struct {
	Watcher  bool
	JSON     bool
	NMEA     bool
	RawLevel int // 0, 1 (hex dump of binary), 2 (verbatim binary+text)
	Split24  bool
	DevPath  string // "" matches every device
}

// Subscriber is one accepted client connection (spec §3 "Subscriber").
type Subscriber struct {
	ID           string
	Conn         net.Conn
	Policy       Policy
	LastActivity time.Time

	mu sync.Mutex // guards LastActivity (touch / idleSince)
}

func (sub *Subscriber) touch() {
	sub.mu.Lock()
	sub.LastActivity = time.Now()
	sub.mu.Unlock()
}

func (sub *Subscriber) idleSince() time.Time {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.LastActivity
}

func newSubscriber(conn net.Conn) *Subscriber {
	return &Subscriber{
		ID:           uuid.New().String(),
		Conn:         conn,
		LastActivity: time.Now(),
	}
}

// deviceEntry is one slot of the bounded device table (spec §3
// "Context", §5 "fixed-size arrays indexed by slot").
type deviceEntry struct {
	Path    string
	Session *session.Session

	recognizedType bool
	lastActivity   time.Time
	releasePending time.Time // zero when not pending release
	lastReconnect  time.Time
}

func (d *deviceEntry) watchedBy(sub *Subscriber) bool {
	return sub.Policy.Watcher && (sub.Policy.DevPath == "" || sub.Policy.DevPath == d.Path)
}
