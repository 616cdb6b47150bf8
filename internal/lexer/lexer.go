package lexer

import "time"

// maxBuffer bounds the input accumulator; on overflow without a framed
// packet the lexer resets to ground and the buffer is discarded
// (spec §3, "back-pressure-free, data-loss-on-overflow policy").
const maxBuffer = 64 * 1024

// Lexer is the per-device packet recognizer (spec §3 "Lexer state").
// It is not safe for concurrent use; one Lexer belongs to exactly one
// device session (spec §5, single-threaded dispatcher ownership).
type Lexer struct {
	buf []byte // input accumulator; buf[0] is always the next unconsumed byte

	charCount  uint64 // total bytes ever seen, for bandwidth accounting
	badStreak  int    // consecutive BAD frames, drives autobaud hunt (§4.B.7)
	lastType   Type
	cycleStart time.Time
	gotPacket  time.Time

	stash []byte // look-ahead recovery buffer (§4.B.4); nil when empty

	chunked   bool // NTRIP/1.1 chunked-transfer mode (§4.B.5)
	chunkLeft int  // remaining raw bytes in the current chunk
}

// New returns an empty lexer in ground state.
func New() *Lexer {
	return &Lexer{}
}

// CharCount reports the total bytes the lexer has ever ingested.
func (l *Lexer) CharCount() uint64 { return l.charCount }

// BadStreak reports the number of consecutive BAD frames since the
// last good one.
func (l *Lexer) BadStreak() int { return l.badStreak }

// LastType reports the protocol tag of the last accepted (non-BAD)
// frame, used by the session engine's driver-switch logic.
func (l *Lexer) LastType() Type { return l.lastType }

// SetChunked switches the lexer into (or out of) NTRIP/1.1 chunked
// unwrapping mode (spec §4.B.5); the chunk framing is stripped before
// bytes ever reach the protocol recognizers below.
func (l *Lexer) SetChunked(on bool) {
	l.chunked = on
	l.chunkLeft = 0
}

// Feed appends newly read bytes to the input accumulator. When the
// accumulator would exceed maxBuffer without having framed a packet,
// it is reset to ground and the data discarded, matching the documented
// overflow policy.
func (l *Lexer) Feed(data []byte) {
	l.charCount += uint64(len(data))
	if l.chunked {
		data = l.unchunk(data)
	}
	l.buf = append(l.buf, data...)
	if len(l.buf) > maxBuffer {
		l.buf = l.buf[:0]
		l.stash = nil
	}
}

// unchunk strips HTTP/1.1 chunk-size headers and CRLF trailers from an
// NTRIP chunked-transfer RTCM3 stream, holding partial chunks for the
// next call (spec §4.B.5).
func (l *Lexer) unchunk(data []byte) []byte {
	if len(l.stash) > 0 {
		data = append(l.stash, data...)
		l.stash = nil
	}
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		if l.chunkLeft > 0 {
			n := l.chunkLeft
			if n > len(data)-i {
				n = len(data) - i
			}
			out = append(out, data[i:i+n]...)
			i += n
			l.chunkLeft -= n
			if l.chunkLeft == 0 {
				// consume trailing CRLF if present/buffered
				i += skipCRLF(data[i:])
			}
			continue
		}
		// parse a chunk-size header: hex digits + CRLF, after the
		// previous chunk's CRLF trailer if it arrived in this call
		i += skipCRLF(data[i:])
		j := i
		for j < len(data) && isHexDigit(data[j]) {
			j++
		}
		if j == i {
			// not a chunk-size header: the rest of this call's data is dropped
			return out
		}
		if j+1 >= len(data) {
			// incomplete header; stash remainder for next Feed
			l.stash = append(l.stash, data[i:]...)
			return out
		}
		size := parseHex(data[i:j])
		j += skipCRLF(data[j:])
		i = j
		l.chunkLeft = size
		if size == 0 {
			// terminal chunk; nothing more to decode this stream
			return out
		}
	}
	return out
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func parseHex(b []byte) int {
	n := 0
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		}
	}
	return n
}

func skipCRLF(b []byte) int {
	n := 0
	if len(b) > 0 && b[0] == '\r' {
		n++
	}
	if len(b) > n && b[n] == '\n' {
		n++
	}
	return n
}

// recognizers is the ordered list of per-protocol framing attempts run
// at the head of the buffer. Order matters only for leaders that
// otherwise collide; each recognizer first checks its own distinctive
// leader byte(s) and returns matched=false immediately if absent, so
// ordering among non-colliding protocols is immaterial.
var recognizers = []func([]byte) result{
	tryComment,
	tryNMEA,
	tryUBX,
	tryRTCM3,
	tryRTCM2,
	tryGarminBin,
	tryTSIP,
	tryEverMore,
	trySiRF,
	trySkytraq,
	tryZodiac,
	tryITalk,
	tryALLYSTAR,
	tryCASIC,
	tryGeoStar,
	tryGREIS,
	tryOncore,
	trySuperStar2,
	tryNavcom,
	tryJSON,
	trySPARTN,
}

// Next attempts to extract exactly one validated, classified frame
// from the head of the input buffer (spec §4.B). It returns ok=false
// when the buffer currently holds no complete frame (either empty,
// all-garbage-so-far, or a recognized leader awaiting more bytes); the
// caller should read more data and call again.
//
// Character pushback (§4.B.3) and the ground-state resync on garbage
// are both expressed here as the "advance one byte and keep scanning
// within this call" loop: a byte that opens no known framing is
// consumed silently and scanning resumes at the next byte, without
// emitting a frame, so garbage never changes the accepted sequence
// (testable property 3).
func (l *Lexer) Next() (Frame, bool) {
	for len(l.buf) > 0 {
		matchedAny := false
		for _, try := range recognizers {
			r := try(l.buf)
			if !r.matched {
				continue
			}
			matchedAny = true
			if r.incomplete {
				// Leader recognized but the frame isn't fully
				// buffered yet; wait for more bytes rather than
				// mis-resyncing mid-frame.
				return Frame{}, false
			}
			l.buf = l.buf[r.consumed:]
			l.gotPacket = time.Now()
			if r.frame.Type != BAD {
				l.lastType = r.frame.Type
				l.badStreak = 0
			} else {
				l.badStreak++
			}
			return r.frame, true
		}
		if !matchedAny {
			// No recognizer claims this leader byte: character
			// pushback/resync, drop one byte, keep scanning.
			l.buf = l.buf[1:]
		}
	}
	return Frame{}, false
}

// Stash saves the supplied bytes (a partial NMEA line interrupted by a
// new leader, per §4.B.4) for later replay via Unstash. The stash is
// exclusive-or-empty: stashing again before unstashing replaces it.
func (l *Lexer) Stash(partial []byte) {
	l.stash = append([]byte(nil), partial...)
}

// Unstash prepends any stashed bytes back onto the head of the input
// buffer and clears the stash.
func (l *Lexer) Unstash() {
	if len(l.stash) == 0 {
		return
	}
	l.buf = append(append([]byte(nil), l.stash...), l.buf...)
	l.stash = nil
}
