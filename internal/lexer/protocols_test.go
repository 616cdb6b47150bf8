package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSiRF(payload []byte) []byte {
	header := []byte{0xA0, 0xA2, byte(len(payload) >> 8), byte(len(payload))}
	cs := sum16Mod7FFF(payload)
	frame := append(header, payload...)
	frame = append(frame, byte(cs>>8), byte(cs))
	return append(frame, 0xB0, 0xB3)
}

func buildSkytraq(payload []byte) []byte {
	header := []byte{0xA0, 0xA1, byte(len(payload) >> 8), byte(len(payload))}
	frame := append(header, payload...)
	frame = append(frame, xor8(payload))
	return append(frame, '\r', '\n')
}

func buildTSIP(id byte, payload []byte) []byte {
	stuffed := stuffDLE(payload)
	frame := append([]byte{dle, id}, stuffed...)
	return append(frame, dle, etx)
}

func stuffDLE(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		out = append(out, b)
		if b == dle {
			out = append(out, dle)
		}
	}
	return out
}

func buildGarminBin(id byte, payload []byte) []byte {
	length := byte(len(payload))
	cs := byte(0) - sum256(append([]byte{id, length}, payload...))
	body := append([]byte{id, length}, payload...)
	body = append(body, cs)
	stuffed := stuffDLE(body)
	frame := append([]byte{dle}, stuffed...)
	return append(frame, dle, etx)
}

func buildEverMore(payload []byte) []byte {
	cs := sum256(payload)
	body := append(append([]byte{}, payload...), cs)
	stuffed := stuffDLE(body)
	frame := append([]byte{dle, stx}, stuffed...)
	return append(frame, dle, etx)
}

func buildZodiac(id, ndata, flags uint16, payload []uint16) []byte {
	putLE := func(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
	header := append([]byte{0xFF, 0x81}, putLE(id)...)
	header = append(header, putLE(ndata)...)
	header = append(header, putLE(flags)...)
	hsum := zodiacSum([]uint16{0xFF | 0x81<<8, id, ndata, flags})
	header = append(header, putLE(hsum)...)
	var body []byte
	for _, w := range payload {
		body = append(body, putLE(w)...)
	}
	psum := zodiacSum(payload)
	body = append(body, putLE(psum)...)
	return append(header, body...)
}

func buildALLYSTAR(payload []byte) []byte {
	header := []byte{0xF1, 0xD9, byte(len(payload)), byte(len(payload) >> 8)}
	body := append(header, payload...)
	ckA, ckB := fletcher8(body[2:])
	return append(body, ckA, ckB)
}

func buildGeoStar(payload []uint16) []byte {
	header := append([]byte("PSGG"), byte(len(payload)), byte(len(payload)>>8))
	var body []byte
	for _, w := range payload {
		body = append(body, byte(w), byte(w>>8))
	}
	frame := append(header, body...)
	// Choose a 4-byte trailer that makes the XOR-32 fold of the whole
	// buffer zero: trailer = fold of everything before it.
	trailer := xor32LE(frame)
	tb := []byte{byte(trailer), byte(trailer >> 8), byte(trailer >> 16), byte(trailer >> 24)}
	return append(frame, tb...)
}

func buildGREIS(id string, payload []byte) []byte {
	lenHex := []byte{hexDigit(len(payload) >> 8), hexDigit(len(payload) >> 4 & 0xF), hexDigit(len(payload) & 0xF)}
	frame := append([]byte(id), lenHex...)
	frame = append(frame, payload...)
	return append(frame, crc8Rolling(frame))
}

func hexDigit(v int) byte {
	v &= 0xF
	if v < 10 {
		return byte('0' + v)
	}
	return byte('A' + v - 10)
}

func buildSuperStar2(id byte, payload []byte) []byte {
	header := []byte{soh, id, id ^ 0xFF, byte(len(payload))}
	body := append([]byte{id, id ^ 0xFF, byte(len(payload))}, payload...)
	cs := sum16(body)
	frame := append(header, payload...)
	return append(frame, byte(cs>>8), byte(cs))
}

func buildNavcom(id byte, payload []byte) []byte {
	header := []byte{stx, 0x99, 0x66, id, byte(len(payload)), byte(len(payload) >> 8)}
	body := append([]byte{id, byte(len(payload)), byte(len(payload) >> 8)}, payload...)
	cs := xor8(body)
	frame := append(header, payload...)
	return append(frame, cs, etx)
}

func TestSiRFFraming(t *testing.T) {
	f := buildSiRF([]byte{1, 2, 3, 4, 5})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, SIRF, out.Type)
}

func TestSkytraqFraming(t *testing.T) {
	f := buildSkytraq([]byte{9, 9, 9})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, SKYTRAQ, out.Type)
}

func TestTSIPFraming(t *testing.T) {
	f := buildTSIP(0x41, []byte{0x10, 0x01, 0x02})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, TSIP, out.Type)
}

func TestGarminBinFraming(t *testing.T) {
	f := buildGarminBin(0x0A, []byte{1, 2, 3})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, GARMINBIN, out.Type)
}

func TestEverMoreFraming(t *testing.T) {
	f := buildEverMore([]byte{1, 2, 3, 4})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, EVERMORE, out.Type)
}

func TestZodiacFraming(t *testing.T) {
	f := buildZodiac(10, 2, 0, []uint16{100, 200})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, ZODIAC, out.Type)
}

func TestALLYSTARFraming(t *testing.T) {
	f := buildALLYSTAR([]byte{1, 2, 3})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, ALLYSTAR, out.Type)
}

func TestGeoStarFraming(t *testing.T) {
	f := buildGeoStar([]uint16{1, 2, 3})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, GEOSTAR, out.Type)
}

func TestGREISFraming(t *testing.T) {
	f := buildGREIS("RT", []byte{1, 2, 3, 4})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, GREIS, out.Type)
}

func TestSuperStar2Framing(t *testing.T) {
	f := buildSuperStar2(0x05, []byte{1, 2})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, SUPERSTAR2, out.Type)
}

func TestNavcomFraming(t *testing.T) {
	f := buildNavcom(0x02, []byte{1, 2, 3})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, NAVCOM, out.Type)
}

func buildCASIC(class, id byte, payload []byte) []byte {
	length := len(payload)
	padded := (length + 3) &^ 3
	padding := make([]byte, padded-length)
	full := append(append([]byte{}, payload...), padding...)
	header := []byte{0xBA, 0xCE, class, id, byte(length), byte(length >> 8)}
	body := append([]byte{class, id, byte(length), byte(length >> 8)}, full...)
	cs := casicChecksum32(body)
	frame := append(header, full...)
	return append(frame, byte(cs), byte(cs>>8), byte(cs>>16), byte(cs>>24))
}

func TestCASICFraming(t *testing.T) {
	f := buildCASIC(0x01, 0x02, []byte{1, 2, 3})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, CASIC, out.Type)
}

func buildITalk(payload []byte) []byte {
	header := []byte{'<', '!', byte(len(payload) >> 8), byte(len(payload))}
	cs := italkChecksum16(payload)
	frame := append(header, payload...)
	return append(frame, byte(cs>>8), byte(cs))
}

func TestITalkFraming(t *testing.T) {
	f := buildITalk([]byte{1, 2, 3, 4})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, ITALK, out.Type)
}

func buildOncore(id [2]byte, payload []byte) []byte {
	body := append([]byte{id[0], id[1]}, payload...)
	cs := xor8(body)
	frame := append([]byte{'@', '@'}, body...)
	frame = append(frame, cs)
	return append(frame, '\r', '\n')
}

func TestOncoreFraming(t *testing.T) {
	f := buildOncore([2]byte{'A', 'a'}, []byte{1, 2, 3})
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, ONCORE, out.Type)
}

func TestSPARTNFraming(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	header := []byte{0x73, byte(len(payload) >> 8 & 0x3), byte(len(payload))}
	body := append(header, payload...)
	crc := CRC24Q(body)
	f := append(body, byte(crc>>16), byte(crc>>8), byte(crc))
	l := New()
	l.Feed(f)
	out, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, SPARTN, out.Type)
}
