package lexer

import "bytes"

// tryComment recognizes a '#'-led comment line, consumed through the
// trailing LF (spec §4.B.1); comments carry no integrity check.
func tryComment(buf []byte) result {
	if len(buf) == 0 || buf[0] != '#' {
		return result{}
	}
	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		if len(buf) > maxBuffer {
			return result{matched: true, consumed: len(buf), frame: Frame{Type: COMMENT, Payload: buf}}
		}
		return result{matched: true, incomplete: true}
	}
	total := nl + 1
	return result{matched: true, consumed: total, frame: Frame{Type: COMMENT, Payload: buf[:total]}}
}
