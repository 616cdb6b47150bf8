package lexer

// tryEverMore recognizes EverMore binary packets: DLE STX, DLE-stuffed
// payload, mod-256 sum, DLE ETX (spec §4.B.1).
func tryEverMore(buf []byte) result {
	if len(buf) < 2 || buf[0] != dle || buf[1] != stx {
		return result{matched: false}
	}
	end, complete := findDLEETXFrom(buf, 2)
	if !complete {
		return result{matched: true, incomplete: true}
	}
	unstuffed := unstuffDLE(buf[2:end])
	total := end + 2
	frame := buf[:total]
	if len(unstuffed) < 1 {
		return result{matched: true, consumed: total, frame: Frame{Type: BAD, Payload: frame}}
	}
	payload, checksum := unstuffed[:len(unstuffed)-1], unstuffed[len(unstuffed)-1]
	if sum256(payload) != checksum {
		return result{matched: true, consumed: total, frame: Frame{Type: BAD, Payload: frame}}
	}
	frame = append(append([]byte{dle, stx}, unstuffed...), dle, etx)
	return result{matched: true, consumed: total, frame: Frame{Type: EVERMORE, Payload: frame}}
}

func findDLEETXFrom(buf []byte, start int) (int, bool) {
	i := start
	for i < len(buf) {
		if buf[i] == dle {
			if i+1 >= len(buf) {
				return 0, false
			}
			if buf[i+1] == etx {
				return i, true
			}
			if buf[i+1] == dle {
				i += 2
				continue
			}
			return 0, false
		}
		i++
	}
	return 0, false
}
