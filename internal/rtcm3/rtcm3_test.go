package rtcm3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitWriter packs MSB-first fields the same way internal/bits reads
// them, for building synthetic RTCM3 bodies in tests.
type bitWriter struct {
	buf []byte
	pos int
}

func (w *bitWriter) putU(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		byteIdx := w.pos / 8
		for byteIdx >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if v&(1<<uint(i)) != 0 {
			w.buf[byteIdx] |= 1 << uint(7-w.pos%8)
		}
		w.pos++
	}
}

func (w *bitWriter) putS(v int64, width int) {
	w.putU(uint64(v)&((1<<uint(width))-1), width)
}

func buildFrame(msgType int, stationID uint16, body *bitWriter) []byte {
	header := &bitWriter{}
	header.putU(uint64(msgType), 12)
	header.putU(uint64(stationID), 12)
	combined := append(append([]byte{}, header.buf...), body.buf...)
	length := len(combined)
	frameHeader := []byte{Preamble, byte(length >> 8 & 0x3), byte(length)}
	full := append(frameHeader, combined...)
	crc := crc24q(full)
	return append(full, byte(crc>>16), byte(crc>>8), byte(crc))
}

func TestDecodeHeaderAndCRC(t *testing.T) {
	body := &bitWriter{}
	body.putU(0, 20) // pad to byte boundary-ish, content irrelevant for this test
	frame := buildFrame(1005, 42, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, 1005, msg.Type)
	assert.Equal(t, uint16(42), msg.StationID)
}

func TestDecodeRejectsBadCRC(t *testing.T) {
	body := &bitWriter{}
	body.putU(0, 20)
	frame := buildFrame(1005, 42, body)
	frame[len(frame)-1] ^= 0xFF
	_, err := Decode(frame)
	assert.ErrorIs(t, err, ErrBadCRC)
}

func TestDecodeStationXYZHeight(t *testing.T) {
	body := &bitWriter{}
	body.putU(15, 6)     // ITRF
	body.putU(1, 1)      // GPS
	body.putU(0, 1)      // GLONASS
	body.putU(0, 1)      // Galileo
	body.putU(0, 1)      // reference only
	body.putU(1, 1)      // single oscillator
	body.putU(0, 1)      // reserved
	body.putS(-37372770000, 38) // x in 0.0001m units -> arbitrary
	body.putS(57290000, 38)
	body.putS(200000000, 38)
	body.putU(15000, 16) // antenna height, 0.0001m units
	frame := buildFrame(TypeStationXYZHeight, 7, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	sc, err := DecodeStationXYZHeight(msg)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), sc.StationID)
	assert.True(t, sc.GPS)
	assert.True(t, sc.HasHeight)
	assert.InDelta(t, 1.5, sc.AntennaHeight, 1e-9)
}

func TestDecodeLegacyObservationGPS(t *testing.T) {
	body := &bitWriter{}
	body.putU(100, 30) // TOW
	body.putU(0, 1)     // sync
	body.putU(1, 5)     // nsat
	body.putU(0, 1)     // smoothing
	body.putU(0, 3)     // interval
	body.putU(5, 6)     // sat id
	body.putU(0, 1)     // L1 code
	body.putU(123456, 24)
	body.putS(-100, 20)
	body.putU(10, 7)
	frame := buildFrame(1001, 3, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	obs, err := DecodeLegacyObservation(msg)
	require.NoError(t, err)
	require.Len(t, obs.Satellites, 1)
	assert.Equal(t, 5, obs.Satellites[0].ID)
	assert.False(t, obs.Satellites[0].HasL2)
}

func TestDecodeMSM4Single(t *testing.T) {
	body := &bitWriter{}
	body.putU(500, 30) // epoch
	body.putU(0, 1)     // multi msg
	body.putU(0, 3)     // iods
	body.putU(0, 7)     // reserved
	body.putU(0, 2)     // clock steer
	body.putU(0, 2)     // ext clock
	body.putU(0, 1)     // smoothing flag
	body.putU(0, 3)     // smoothing interval
	body.putU(1<<4, 64) // satellite mask: satellite 5 present
	body.putU(1<<2, 32) // signal mask: signal 3 present
	body.putU(1, 1)     // cell mask: single cell present
	// satellite data
	body.putU(10, 8) // rough range ms
	body.putU(512, 10) // range modulo, fixed 10 bits every level, scale 1/1024
	// signal data
	body.putS(1000, 15) // fine pseudorange
	body.putS(2000, 22) // fine phase range
	body.putU(5, 4)      // lock time
	body.putU(0, 1)      // half cycle
	body.putU(40, 6)     // CNR
	frame := buildFrame(1074, 9, body) // GPS MSM4
	msg, err := Decode(frame)
	require.NoError(t, err)
	m, err := DecodeMSM(msg)
	require.NoError(t, err)
	assert.Equal(t, SysGPS, m.Header.System)
	assert.Equal(t, 4, m.Header.Level)
	require.Len(t, m.Satellites, 1)
	assert.Equal(t, 5, m.Satellites[0].ID)
	require.Len(t, m.Signals, 1)
	assert.Equal(t, 5, m.Signals[0].SatelliteID)
	assert.Greater(t, m.Signals[0].PseudorangeMeters, 0.0)
}

func TestDecodeMSMRejectsRuntHeader(t *testing.T) {
	body := &bitWriter{}
	body.putU(0, 40) // far short of the 21-byte minimum MSM header
	frame := buildFrame(1074, 9, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	_, err = DecodeMSM(msg)
	assert.ErrorIs(t, err, ErrTruncatedBody)
}

func TestDecodeMSMRejectsEmptySatelliteMask(t *testing.T) {
	body := &bitWriter{}
	body.putU(500, 30) // epoch
	body.putU(0, 1)
	body.putU(0, 3)
	body.putU(0, 7)
	body.putU(0, 2)
	body.putU(0, 2)
	body.putU(0, 1)
	body.putU(0, 3)
	body.putU(0, 64) // satellite mask: no satellites present
	body.putU(1<<2, 32)
	frame := buildFrame(1074, 9, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	_, err = DecodeMSM(msg)
	assert.ErrorIs(t, err, ErrInvalidCellCount)
}

func TestDecodeMSMRejectsOversizedCellCount(t *testing.T) {
	body := &bitWriter{}
	body.putU(500, 30)
	body.putU(0, 1)
	body.putU(0, 3)
	body.putU(0, 7)
	body.putU(0, 2)
	body.putU(0, 2)
	body.putU(0, 1)
	body.putU(0, 3)
	body.putU(^uint64(0), 64) // satellite mask: all 64 satellites present
	body.putU(0x3, 32)        // signal mask: 2 signals present -> n_cell=128
	frame := buildFrame(1074, 9, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	_, err = DecodeMSM(msg)
	assert.ErrorIs(t, err, ErrInvalidCellCount)
}

func TestDecodeStationXYZHeightRejectsTruncatedBody(t *testing.T) {
	body := &bitWriter{}
	body.putU(15, 6)
	body.putU(1, 1)
	body.putU(0, 1)
	body.putU(0, 1)
	body.putU(0, 1)
	body.putU(1, 1)
	body.putU(0, 1)
	body.putS(100, 38)
	body.putS(100, 38)
	// Z and antenna height omitted: frame ends mid-header.
	frame := buildFrame(TypeStationXYZHeight, 7, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	_, err = DecodeStationXYZHeight(msg)
	assert.ErrorIs(t, err, ErrTruncatedBody)
}

func TestDecodeGPSEphemeris(t *testing.T) {
	body := &bitWriter{}
	body.putU(12, 6)   // sat id
	body.putU(2100, 10) // week
	body.putU(0, 4)     // accuracy
	body.putU(0, 2)     // code on L2
	body.putS(0, 14)    // idot
	body.putU(3, 8)     // iode
	body.putU(100, 16)  // toc
	body.putS(0, 8)
	body.putS(0, 16)
	body.putS(0, 22)
	body.putU(50, 10) // iodc
	body.putS(0, 16)
	body.putS(0, 16)
	body.putS(0, 32)
	body.putS(0, 16)
	body.putU(0, 32)
	body.putS(0, 16)
	body.putU(26560000, 32) // sqrtA
	body.putU(200, 16)      // toe
	body.putS(0, 16)
	body.putS(0, 32)
	body.putS(0, 16)
	body.putS(0, 32)
	body.putS(0, 16)
	body.putS(0, 32)
	body.putS(0, 24)
	body.putS(0, 8)
	body.putU(0, 6)
	body.putU(1, 1)
	body.putU(0, 1)
	frame := buildFrame(TypeGPSEphemeris, 0, body)
	msg, err := Decode(frame)
	require.NoError(t, err)
	e, err := DecodeGPSEphemeris(msg)
	require.NoError(t, err)
	assert.Equal(t, 12, e.SatelliteID)
	assert.Equal(t, 2100, e.WeekNumber)
	assert.True(t, e.L2PDataFlag)
}
