package lexer

import "bytes"

// checksumExemptTalkers lists NMEA talkers whose vendors omit the
// trailing "*HH" checksum field (spec §4.B.6).
var checksumExemptTalkers = [][]byte{
	[]byte("$STI,"),
}

// tryNMEA recognizes NMEA-0183 ('$') and AIS ('!') sentences: no length
// field, terminated by CRLF, with a "*HH" XOR checksum that is required
// except for the exempt talkers above (spec §4.B.1, §4.B.6).
func tryNMEA(buf []byte) result {
	if len(buf) == 0 || (buf[0] != '$' && buf[0] != '!') {
		return result{}
	}
	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		if len(buf) > maxBuffer {
			return result{matched: true, consumed: len(buf), frame: Frame{Type: BAD, Payload: buf}}
		}
		return result{matched: true, incomplete: true}
	}
	end := nl + 1
	line := buf[:end]

	t := NMEA
	if buf[0] == '!' {
		t = AIS
	}

	exempt := false
	for _, p := range checksumExemptTalkers {
		if bytes.HasPrefix(line, p) {
			exempt = true
			break
		}
	}

	star := bytes.LastIndexByte(line, '*')
	if exempt || star < 0 || star+2 >= len(line) {
		if exempt {
			return result{matched: true, consumed: end, frame: Frame{Type: t, Payload: line}}
		}
		return result{matched: true, consumed: end, frame: Frame{Type: BAD, Payload: line}}
	}

	want, ok := hex2(line[star+1], line[star+2])
	if !ok || nmeaChecksum(line[:star+1]) != want {
		return result{matched: true, consumed: end, frame: Frame{Type: BAD, Payload: line}}
	}
	return result{matched: true, consumed: end, frame: Frame{Type: t, Payload: line}}
}

func hex2(hi, lo byte) (byte, bool) {
	h, ok1 := hexNibble(hi)
	l, ok2 := hexNibble(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
