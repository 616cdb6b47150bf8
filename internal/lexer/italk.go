package lexer

// tryITalk recognizes iTalk binary packets: "<!" leader, u16 BE
// length, payload, a trailing two-byte rolling checksum (spec
// §4.B.1).
func tryITalk(buf []byte) result {
	if len(buf) < 2 || buf[0] != '<' || buf[1] != '!' {
		return result{}
	}
	const headerLen = 4
	if len(buf) < headerLen {
		return result{matched: true, incomplete: true}
	}
	length := int(buf[2])<<8 | int(buf[3])
	total := headerLen + length + 2
	if len(buf) < total {
		return result{matched: true, incomplete: true}
	}
	frame := buf[:total]
	payload := frame[headerLen : headerLen+length]
	want := uint16(frame[total-2])<<8 | uint16(frame[total-1])
	if italkChecksum16(payload) != want {
		return result{matched: true, consumed: total, frame: Frame{Type: BAD, Payload: frame}}
	}
	return result{matched: true, consumed: total, frame: Frame{Type: ITALK, Payload: frame}}
}
