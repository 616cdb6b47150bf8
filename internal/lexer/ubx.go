package lexer

// tryUBX recognizes u-blox binary framing: 0xB5 0x62, class, id, u16 LE
// length, payload, two-byte Fletcher-8 checksum (spec §4.B.1).
func tryUBX(buf []byte) result {
	if len(buf) < 2 || buf[0] != 0xB5 || buf[1] != 0x62 {
		return result{}
	}
	const headerLen = 6 // leader(2) + class(1) + id(1) + length(2)
	if len(buf) < headerLen {
		return result{matched: true, incomplete: true}
	}
	length := int(buf[4]) | int(buf[5])<<8
	total := headerLen + length + 2
	if len(buf) < total {
		return result{matched: true, incomplete: true}
	}
	frame := buf[:total]
	ckA, ckB := fletcher8(frame[2 : headerLen+length])
	if ckA != frame[total-2] || ckB != frame[total-1] {
		return result{matched: true, consumed: total, frame: Frame{Type: BAD, Payload: frame}}
	}
	return result{matched: true, consumed: total, frame: Frame{Type: UBX, Payload: frame}}
}
