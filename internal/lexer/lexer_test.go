package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildUBX(class, id byte, payload []byte) []byte {
	body := append([]byte{class, id, byte(len(payload)), byte(len(payload) >> 8)}, payload...)
	ckA, ckB := fletcher8(body)
	frame := append([]byte{0xB5, 0x62}, body...)
	return append(frame, ckA, ckB)
}

func buildRTCM3(payload []byte) []byte {
	length := len(payload)
	header := []byte{0xD3, byte(length >> 8 & 0x3), byte(length)}
	body := append(header, payload...)
	crc := CRC24Q(body)
	return append(body, byte(crc>>16), byte(crc>>8), byte(crc))
}

func TestNMEAScenarioS1(t *testing.T) {
	line := "$GPGGA,181908.00,3404.7041778,N,07044.3966270,W,4,13,1.00,495.144,M,29.200,M,0.10,0000*40\r\n"
	l := New()
	l.Feed([]byte(line))
	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, NMEA, f.Type)
	assert.Equal(t, line, string(f.Payload))
}

func TestUBXScenarioS2(t *testing.T) {
	payload := make([]byte, 92)
	for i := range payload {
		payload[i] = byte(i)
	}
	raw := buildUBX(0x01, 0x07, payload)
	l := New()
	l.Feed(raw)
	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, UBX, f.Type)
	assert.Equal(t, byte(0x01), f.Payload[2])
	assert.Equal(t, byte(0x07), f.Payload[3])
	length := int(f.Payload[4]) | int(f.Payload[5])<<8
	assert.Equal(t, 92, length)
}

func TestRTCM3RoundTrip(t *testing.T) {
	payload := []byte{0x3E, 0xD0, 0x01, 0x02, 0x03, 0x04}
	raw := buildRTCM3(payload)
	l := New()
	l.Feed(raw)
	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, RTCM3, f.Type)
	assert.Equal(t, raw, f.Payload)
}

func TestInterleavedStreamScenarioS5(t *testing.T) {
	gga := "$GPGGA,181908.00,3404.7041778,N,07044.3966270,W,4,13,1.00,495.144,M,29.200,M,0.10,0000*40\r\n"
	rmc := "$GPRMC,181908.00,A,3404.7041778,N,07044.3966270,W,0.0,0.0,131220,0.0,E,A*2D\r\n"
	ubx := buildUBX(0x01, 0x07, []byte{1, 2, 3, 4})

	var stream []byte
	stream = append(stream, 0x55)
	stream = append(stream, []byte(gga)...)
	stream = append(stream, 0x55)
	stream = append(stream, ubx...)
	stream = append(stream, []byte(rmc)...)

	l := New()
	l.Feed(stream)

	f1, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, NMEA, f1.Type)

	f2, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, UBX, f2.Type)

	f3, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, NMEA, f3.Type)

	_, ok = l.Next()
	assert.False(t, ok)
}

func TestCorruptChecksumScenarioS6(t *testing.T) {
	rmc := "$GPRMC,181908.00,A,3404.7041778,N,07044.3966270,W,0.0,0.0,131220,0.0,E,A*00\r\n"
	next := "$GPGGA,181908.00,3404.7041778,N,07044.3966270,W,4,13,1.00,495.144,M,29.200,M,0.10,0000*40\r\n"
	l := New()
	l.Feed([]byte(rmc + next))

	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, BAD, f.Type)

	f2, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, NMEA, f2.Type)
}

func TestChunkedNTRIPScenarioS7(t *testing.T) {
	// 3-byte header + 94-byte payload + 3-byte CRC = 100 bytes = chunk 0x64
	payload := make([]byte, 94)
	for i := range payload {
		payload[i] = byte(i)
	}
	raw := buildRTCM3(payload)

	l := New()
	l.SetChunked(true)
	l.Feed([]byte("64\r\n"))
	l.Feed(raw)
	l.Feed([]byte("\r\n0\r\n\r\n"))

	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, RTCM3, f.Type)
	assert.Equal(t, raw, f.Payload)
}

func TestJSONFraming(t *testing.T) {
	obj := `{"class":"TPV","lat":34.1,"nested":{"a":[1,2,"br}ace"]}}`
	l := New()
	l.Feed([]byte(obj))
	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, JSON, f.Type)
	assert.Equal(t, obj, string(f.Payload))
}

func TestCommentFraming(t *testing.T) {
	l := New()
	l.Feed([]byte("# hello world\nrest"))
	f, ok := l.Next()
	require.True(t, ok)
	assert.Equal(t, COMMENT, f.Type)
	assert.Equal(t, "# hello world\n", string(f.Payload))
}

func TestOverflowResetsLexer(t *testing.T) {
	l := New()
	junk := make([]byte, maxBuffer+10)
	for i := range junk {
		junk[i] = 0x55
	}
	l.Feed(junk)
	assert.LessOrEqual(t, len(l.buf), maxBuffer)
}

func TestStashRoundTrip(t *testing.T) {
	l := New()
	l.Stash([]byte("partial"))
	l.Feed([]byte("-rest"))
	l.Unstash()
	assert.Equal(t, "partial-rest", string(l.buf))
}
