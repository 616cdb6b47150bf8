package session

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywave-gnss/gnssd/internal/lexer"
)

// TestDOPConsistency checks testable property 8: pdop^2 ~= hdop^2 +
// vdop^2 and gdop^2 ~= pdop^2 + tdop^2, within 1e-6.
func TestDOPConsistency(t *testing.T) {
	sats := []Satellite{
		{PRN: 1, Azimuth: 10, Elevation: 70, Used: true},
		{PRN: 2, Azimuth: 130, Elevation: 40, Used: true},
		{PRN: 3, Azimuth: 250, Elevation: 55, Used: true},
		{PRN: 4, Azimuth: 300, Elevation: 20, Used: true},
		{PRN: 5, Azimuth: 60, Elevation: 15, Used: true},
	}
	_, _, hdop, vdop, pdop, tdop, gdop, ok := computeDOP(sats)
	require.True(t, ok)
	assert.InDelta(t, pdop*pdop, hdop*hdop+vdop*vdop, 1e-6)
	assert.InDelta(t, gdop*gdop, pdop*pdop+tdop*tdop, 1e-6)
}

func TestDOPInsufficientSatellites(t *testing.T) {
	sats := []Satellite{
		{PRN: 1, Azimuth: 10, Elevation: 70, Used: true},
		{PRN: 2, Azimuth: 130, Elevation: 40, Used: true},
	}
	_, _, _, _, _, _, _, ok := computeDOP(sats)
	assert.False(t, ok)
}

func TestSanityClampReplacesOutOfRangeVelocity(t *testing.T) {
	s := New("tcp://example.invalid:2101", nil, nil)
	s.CurrentFix.Speed = 20000
	s.CurrentFix.Mask = SpeedSet
	s.mergeFix(SpeedSet)
	assert.True(t, math.IsNaN(s.CurrentFix.Speed))
}

func TestECEFToGeodeticMatchesKnownStation(t *testing.T) {
	s := New("tcp://example.invalid:2101", nil, nil)
	f := &s.CurrentFix
	// RTCM3 1005 sample station from spec scenario S3.
	f.ECEFX, f.ECEFY, f.ECEFZ = 1114104.5999, -4850729.7108, 3975521.4643
	f.HaveECEF = true
	s.ecefToGeodetic(f)
	assert.InDelta(t, 38.0, f.Lat, 1.0)
	assert.InDelta(t, -77.0, f.Lon, 1.0)
}

func TestDriverSwitchOnMatchingFrame(t *testing.T) {
	var parsed int
	nmeaDriver := &Driver{
		Name:       "nmea",
		PacketType: lexer.NMEA,
		ParsePacket: func(s *Session, f lexer.Frame) (ReportMask, error) {
			parsed++
			return TimeSet, nil
		},
	}
	s := New("tcp://example.invalid:2101", []*Driver{nmeaDriver}, nil)
	mask := s.dispatchFrame(lexer.Frame{Type: lexer.NMEA, Payload: []byte("$GPGGA*00\r\n")})
	assert.Equal(t, nmeaDriver, s.Driver)
	assert.Equal(t, 1, parsed)
	assert.NotZero(t, mask&TimeSet)
}

func TestStickyDriverReinstatedOnReactivate(t *testing.T) {
	ubx := &Driver{Name: "ubx", PacketType: lexer.UBX, Sticky: true, ParsePacket: noopParse}
	nmea := &Driver{Name: "nmea", PacketType: lexer.NMEA, ParsePacket: noopParse}
	s := New("/dev/ttyUSB0", []*Driver{ubx, nmea}, nil)
	s.dispatchFrame(lexer.Frame{Type: lexer.UBX})
	require.Equal(t, ubx, s.Driver)
	s.dispatchFrame(lexer.Frame{Type: lexer.NMEA})
	require.Equal(t, nmea, s.Driver)
	assert.Equal(t, ubx, s.lastController)
	s.Activate()
	assert.Equal(t, ubx, s.Driver)
}

func noopParse(s *Session, f lexer.Frame) (ReportMask, error) { return 0, nil }

func TestTimeLatchRequiresThreeFixes(t *testing.T) {
	var latched int
	s := New("tcp://example.invalid:2101", nil, nil)
	s.SetTimeSink(func(gps, sys time.Time) { latched++ })
	base := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s.CurrentFix.Time = base.Add(time.Duration(i) * time.Second)
		s.latchTime()
	}
	assert.Equal(t, 2, latched)
}
