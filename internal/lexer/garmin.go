package lexer

// tryGarminBin recognizes Garmin binary packets: DLE, id, DLE-stuffed
// 1-byte length, DLE-stuffed data, DLE-stuffed mod-256 checksum byte,
// DLE ETX trailer (spec §4.B.1). It is tried before tryTSIP so a
// checksum match can claim the more specific framing; a non-match
// falls through to the checksum-less TSIP recognizer.
func tryGarminBin(buf []byte) result {
	if len(buf) < 2 || buf[0] != dle || buf[1] == etx || buf[1] == stx {
		return result{}
	}
	end, complete := findDLEETXFrom(buf, 1)
	if !complete {
		return result{matched: false} // let tryTSIP own the incomplete-wait
	}
	unstuffed := unstuffDLE(buf[1:end])
	if len(unstuffed) < 3 {
		return result{}
	}
	id := unstuffed[0]
	length := int(unstuffed[1])
	if len(unstuffed) != 2+length+1 {
		return result{}
	}
	data := unstuffed[2 : 2+length]
	wantChecksum := unstuffed[2+length]
	gotChecksum := byte(0) - sum256(append([]byte{id, unstuffed[1]}, data...))
	total := end + 2
	frame := append(append([]byte{dle}, unstuffed...), dle, etx)
	if gotChecksum != wantChecksum {
		return result{}
	}
	return result{matched: true, consumed: total, frame: Frame{Type: GARMINBIN, Payload: frame}}
}
