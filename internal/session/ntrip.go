package session

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ntripSubState is the ordered connection state machine spec §4.D.6
// names: INIT -> SENT_PROBE -> SENT_GET -> ESTABLISHED -> (ERR|CLOSED).
type ntripSubState int

const (
	ntripInit ntripSubState = iota
	ntripSentProbe
	ntripSentGet
	ntripEstablished
	ntripErr
	ntripClosed
)

// ntripReconnectInterval bounds reconnect attempts (spec §4.D.6, §6
// timeouts table: "NTRIP reconnect 6").
const ntripReconnectInterval = 6 * time.Second

type ntripState struct {
	state       ntripSubState
	lastAttempt time.Time
	mountpoint  string
}

// ntripConnect drives INIT through ESTABLISHED: dial, send the
// mountpoint GET (no separate probe request is sent), and check for the
// caster's ICY/HTTP 200 greeting. Grounded on the teacher's
// `pkg/gnssgo/stream.OpenNtrip` GET-request construction (User-Agent,
// basic auth from the userinfo component of the URL) but written
// directly against net.Conn instead of net/http so the lexer's
// chunked-transfer unwrapper (§4.B.5) can sit directly downstream of
// the raw socket.
func (s *Session) ntripConnect(ctx context.Context, u *url.URL) error {
	s.ntrip.state = ntripSentProbe
	host := u.Host
	if !strings.Contains(host, ":") {
		host = net.JoinHostPort(host, "2101")
	}
	d := net.Dialer{}
	c, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		s.ntrip.state = ntripErr
		return fmt.Errorf("session: ntrip dial %s: %w", host, err)
	}

	mount := strings.TrimPrefix(u.Path, "/")
	s.ntrip.mountpoint = mount
	req := fmt.Sprintf("GET /%s HTTP/1.1\r\nHost: %s\r\nUser-Agent: gnssd NTRIP client/1.0\r\nNtrip-Version: Ntrip/2.0\r\nAccept: */*\r\nConnection: close\r\n", mount, host)
	if u.User != nil {
		auth := u.User.String()
		req += "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(auth)) + "\r\n"
	}
	req += "\r\n"

	s.ntrip.state = ntripSentGet
	if _, err := c.Write([]byte(req)); err != nil {
		_ = c.Close()
		s.ntrip.state = ntripErr
		return fmt.Errorf("session: ntrip write request: %w", err)
	}

	_ = c.SetReadDeadline(time.Now().Add(10 * time.Second))
	br := bufio.NewReader(c)
	status, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		s.ntrip.state = ntripErr
		return fmt.Errorf("session: ntrip read status: %w", err)
	}
	if !strings.Contains(status, "200") && !strings.HasPrefix(status, "ICY 200") {
		_ = c.Close()
		s.ntrip.state = ntripErr
		return fmt.Errorf("session: ntrip caster rejected mountpoint %q: %s", mount, strings.TrimSpace(status))
	}
	// Drain remaining header lines (HTTP/1.1 caster) up to the blank line.
	chunked := false
	for {
		line, err := br.ReadString('\n')
		if err != nil || strings.TrimSpace(line) == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "transfer-encoding:") && strings.Contains(strings.ToLower(line), "chunked") {
			chunked = true
		}
	}

	_ = c.SetReadDeadline(time.Time{})
	s.httpConn = c
	s.netConn = bufConn{Conn: c, r: br}
	s.SourceType = SourceTCP
	s.Lexer.SetChunked(chunked)
	s.ntrip.state = ntripEstablished
	s.onlineSince = time.Now()
	return nil
}

// bufConn adapts a bufio.Reader sitting in front of an already-consumed
// net.Conn (the NTRIP handshake headers) back into the conn interface
// Session.read expects.
type bufConn struct {
	net.Conn
	r *bufio.Reader
}

func (b bufConn) Read(p []byte) (int, error) { return b.r.Read(p) }
