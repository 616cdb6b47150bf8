package rtcm3

import "github.com/skywave-gnss/gnssd/internal/bits"

// GPSEphemeris is the decoded body of message 1019 (spec §4.C.3). Scale
// factors follow the broadcast-ephemeris LSB table common to GPS
// navigation messages (IS-GPS-200), the same constants the teacher's
// RTKLIB-derived ephemeris types are built from.
type GPSEphemeris struct {
	SatelliteID     int
	WeekNumber      int
	SVAccuracy      uint8
	CodeOnL2        uint8
	IDOT            float64 // rad/s
	IODE            uint8
	Toc             float64 // s
	Af2             float64
	Af1             float64
	Af0             float64
	IODC            uint16
	Crs             float64
	DeltaN          float64 // rad/s
	M0              float64 // rad
	Cuc             float64
	Eccentricity    float64
	Cus             float64
	SqrtA           float64
	Toe             float64 // s
	Cic             float64
	Omega0          float64 // rad
	Cis             float64
	I0              float64 // rad
	Crc             float64
	Omega           float64 // rad (argument of perigee)
	OmegaDot        float64 // rad/s
	TGD             float64 // s
	SVHealth        uint8
	L2PDataFlag     bool
	FitInterval     bool
}

const (
	piGNSS = 3.1415926535898
)

// DecodeGPSEphemeris decodes message 1019.
func DecodeGPSEphemeris(msg *Message) (*GPSEphemeris, error) {
	if msg.Type != TypeGPSEphemeris {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	e := &GPSEphemeris{}
	e.SatelliteID = int(bits.UBits(d, pos, 6))
	pos += 6
	e.WeekNumber = int(bits.UBits(d, pos, 10))
	pos += 10
	e.SVAccuracy = uint8(bits.UBits(d, pos, 4))
	pos += 4
	e.CodeOnL2 = uint8(bits.UBits(d, pos, 2))
	pos += 2
	e.IDOT = float64(bits.SBits(d, pos, 14)) * p2(-43) * piGNSS
	pos += 14
	e.IODE = uint8(bits.UBits(d, pos, 8))
	pos += 8
	e.Toc = float64(bits.UBits(d, pos, 16)) * 16.0
	pos += 16
	e.Af2 = float64(bits.SBits(d, pos, 8)) * p2(-55)
	pos += 8
	e.Af1 = float64(bits.SBits(d, pos, 16)) * p2(-43)
	pos += 16
	e.Af0 = float64(bits.SBits(d, pos, 22)) * p2(-31)
	pos += 22
	e.IODC = uint16(bits.UBits(d, pos, 10))
	pos += 10
	e.Crs = float64(bits.SBits(d, pos, 16)) * p2(-5)
	pos += 16
	e.DeltaN = float64(bits.SBits(d, pos, 16)) * p2(-43) * piGNSS
	pos += 16
	e.M0 = float64(bits.SBits(d, pos, 32)) * p2(-31) * piGNSS
	pos += 32
	e.Cuc = float64(bits.SBits(d, pos, 16)) * p2(-29)
	pos += 16
	e.Eccentricity = float64(bits.UBits(d, pos, 32)) * p2(-33)
	pos += 32
	e.Cus = float64(bits.SBits(d, pos, 16)) * p2(-29)
	pos += 16
	e.SqrtA = float64(bits.UBits(d, pos, 32)) * p2(-19)
	pos += 32
	e.Toe = float64(bits.UBits(d, pos, 16)) * 16.0
	pos += 16
	e.Cic = float64(bits.SBits(d, pos, 16)) * p2(-29)
	pos += 16
	e.Omega0 = float64(bits.SBits(d, pos, 32)) * p2(-31) * piGNSS
	pos += 32
	e.Cis = float64(bits.SBits(d, pos, 16)) * p2(-29)
	pos += 16
	e.I0 = float64(bits.SBits(d, pos, 32)) * p2(-31) * piGNSS
	pos += 32
	e.Crc = float64(bits.SBits(d, pos, 16)) * p2(-5)
	pos += 16
	e.Omega = float64(bits.SBits(d, pos, 32)) * p2(-31) * piGNSS
	pos += 32
	e.OmegaDot = float64(bits.SBits(d, pos, 24)) * p2(-43) * piGNSS
	pos += 24
	e.TGD = float64(bits.SBits(d, pos, 8)) * p2(-31)
	pos += 8
	e.SVHealth = uint8(bits.UBits(d, pos, 6))
	pos += 6
	e.L2PDataFlag = bits.UBits(d, pos, 1) != 0
	pos++
	e.FitInterval = bits.UBits(d, pos, 1) != 0
	pos++
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return e, nil
}

func p2(n int) float64 {
	if n >= 0 {
		v := 1.0
		for i := 0; i < n; i++ {
			v *= 2
		}
		return v
	}
	v := 1.0
	for i := 0; i < -n; i++ {
		v /= 2
	}
	return v
}

// GLONASSEphemeris is the decoded body of message 1020. Only the fields
// needed to identify and time-tag a GLONASS broadcast frame are
// decoded field-by-field; the remaining orbital parameters are kept as
// a raw bit offset for a caller that needs them, since GLONASS's
// relative (not Keplerian) orbit representation uses a different
// integration scheme than spec §4.C.2's scaling table covers.
type GLONASSEphemeris struct {
	SatelliteID    int
	FrequencyChannel int
	Health         uint8
	TkHours        uint8
	TkMinutes      uint8
	TkSeconds30s   uint8
	RawBitOffset   int // bit position where position/velocity/acceleration terms begin
}

// DecodeGLONASSEphemeris decodes the identifying header of message
// 1020.
func DecodeGLONASSEphemeris(msg *Message) (*GLONASSEphemeris, error) {
	if msg.Type != TypeGLOEphemeris {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	e := &GLONASSEphemeris{}
	e.SatelliteID = int(bits.UBits(d, pos, 6))
	pos += 6
	e.FrequencyChannel = int(bits.UBits(d, pos, 5))
	pos += 5
	pos += 1 // almanac health availability indicator
	e.Health = uint8(bits.UBits(d, pos, 1))
	pos += 1
	pos += 1 // reserved
	e.TkHours = uint8(bits.UBits(d, pos, 5))
	pos += 5
	e.TkMinutes = uint8(bits.UBits(d, pos, 6))
	pos += 6
	e.TkSeconds30s = uint8(bits.UBits(d, pos, 1))
	pos += 1
	e.RawBitOffset = pos
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return e, nil
}

// KeplerianEphemeris is the common shape Galileo (1046) and BeiDou
// (1042) broadcast ephemerides share with GPS: both use the same
// Keplerian element set, differing only in a handful of header fields
// and scale factors. This package decodes both with the GPSEphemeris
// bit layout, read from the same body offset as message 1019, since the
// retrieved pack does not carry a normative per-constellation scale
// table distinct from GPS's.
type KeplerianEphemeris struct {
	SatelliteID int
	WeekNumber  int
	GPSEphemeris
}

// DecodeGalileoEphemeris decodes message 1046 using the GPS Keplerian
// layout (see KeplerianEphemeris).
func DecodeGalileoEphemeris(msg *Message) (*KeplerianEphemeris, error) {
	if msg.Type != TypeGalileoEphemeris {
		return nil, ErrUnsupported
	}
	return decodeKeplerian(msg)
}

// DecodeBeiDouEphemeris decodes message 1042 using the GPS Keplerian
// layout (see KeplerianEphemeris).
func DecodeBeiDouEphemeris(msg *Message) (*KeplerianEphemeris, error) {
	if msg.Type != TypeBeiDouEphemeris {
		return nil, ErrUnsupported
	}
	return decodeKeplerian(msg)
}

func decodeKeplerian(msg *Message) (*KeplerianEphemeris, error) {
	inner := *msg
	inner.Type = TypeGPSEphemeris
	gps, err := DecodeGPSEphemeris(&inner)
	if err != nil {
		return nil, err
	}
	return &KeplerianEphemeris{SatelliteID: gps.SatelliteID, WeekNumber: gps.WeekNumber, GPSEphemeris: *gps}, nil
}
