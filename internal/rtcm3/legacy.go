package rtcm3

import "github.com/skywave-gnss/gnssd/internal/bits"

const (
	speedOfLight  = 299792458.0
	gpsRangeUnit  = speedOfLight * 1e-3 // meters per GPS pseudorange "integer ms" unit is folded via ambiguity, not used directly here
)

// LegacyObservation is the decoded body of RTCM3 message types
// 1001-1004 (GPS) and 1009-1012 (GLONASS): a single reference-station
// epoch of per-satellite code/phase observables (spec §4.C.3).
type LegacyObservation struct {
	StationID   uint16
	System      int // SysGPS or SysGLONASS
	EpochTime   uint32 // GPS TOW in ms (30-bit) or GLONASS tk (27-bit), per System
	Synchronous bool
	Smoothing   bool
	SmoothingInterval uint8
	Satellites  []LegacySatellite
}

// LegacySatellite is one satellite's code/phase pair within a legacy
// observation message. L2 fields are zero-valued when the message type
// carries L1 only (1001/1002/1009/1010).
type LegacySatellite struct {
	ID              int
	L1Code          uint8
	L1Pseudorange   float64 // meters
	L1PhaseRange    float64 // meters, relative to L1 pseudorange
	L1LockTime      uint8
	L1Ambiguity     uint8   // only set for 1002/1004/1010/1012
	L1CNR           float64 // dB-Hz, only set for 1002/1004/1010/1012
	HasL2           bool
	L2Code          uint8
	L2PseudorangeDiff float64 // meters, relative to L1 pseudorange
	L2PhaseRange    float64 // meters, relative to L1 pseudorange
	L2LockTime      uint8
	L2CNR           float64 // dB-Hz, only set for 1004/1012
}

type legacyShape struct {
	sys              int
	epochBits        int
	hasL2            bool
	extended         bool
}

func legacyShapeFor(t int) (legacyShape, bool) {
	switch t {
	case 1001:
		return legacyShape{sys: SysGPS, epochBits: 30}, true
	case 1002:
		return legacyShape{sys: SysGPS, epochBits: 30, extended: true}, true
	case 1003:
		return legacyShape{sys: SysGPS, epochBits: 30, hasL2: true}, true
	case 1004:
		return legacyShape{sys: SysGPS, epochBits: 30, hasL2: true, extended: true}, true
	case 1009:
		return legacyShape{sys: SysGLONASS, epochBits: 27}, true
	case 1010:
		return legacyShape{sys: SysGLONASS, epochBits: 27, extended: true}, true
	case 1011:
		return legacyShape{sys: SysGLONASS, epochBits: 27, hasL2: true}, true
	case 1012:
		return legacyShape{sys: SysGLONASS, epochBits: 27, hasL2: true, extended: true}, true
	}
	return legacyShape{}, false
}

// DecodeLegacyObservation decodes message types 1001-1004 and
// 1009-1012.
func DecodeLegacyObservation(msg *Message) (*LegacyObservation, error) {
	shape, ok := legacyShapeFor(msg.Type)
	if !ok {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	obs := &LegacyObservation{StationID: msg.StationID, System: shape.sys}
	obs.EpochTime = uint32(bits.UBits(d, pos, shape.epochBits))
	pos += shape.epochBits
	obs.Synchronous = bits.UBits(d, pos, 1) != 0
	pos++
	nsat := int(bits.UBits(d, pos, 5))
	pos += 5
	obs.Smoothing = bits.UBits(d, pos, 1) != 0
	pos++
	obs.SmoothingInterval = uint8(bits.UBits(d, pos, 3))
	pos += 3

	obs.Satellites = make([]LegacySatellite, 0, nsat)
	for i := 0; i < nsat; i++ {
		var sat LegacySatellite
		sat.ID = int(bits.UBits(d, pos, 6))
		pos += 6
		sat.L1Code = uint8(bits.UBits(d, pos, 1))
		pos++
		if shape.sys == SysGLONASS {
			pos += 5 // frequency channel number, not surfaced as a separate field here
		}
		prBits := 24
		if shape.sys == SysGLONASS {
			prBits = 25
		}
		sat.L1Pseudorange = float64(bits.UBits(d, pos, prBits)) * 0.02
		pos += prBits
		sat.L1PhaseRange = float64(bits.SBits(d, pos, 20)) * 0.0005
		pos += 20
		sat.L1LockTime = uint8(bits.UBits(d, pos, 7))
		pos += 7
		if shape.extended {
			sat.L1Ambiguity = uint8(bits.UBits(d, pos, 8))
			pos += 8
			sat.L1CNR = float64(bits.UBits(d, pos, 8)) * 0.25
			pos += 8
		}
		if shape.hasL2 {
			sat.HasL2 = true
			sat.L2Code = uint8(bits.UBits(d, pos, 2))
			pos += 2
			sat.L2PseudorangeDiff = float64(bits.SBits(d, pos, 14)) * 0.02
			pos += 14
			sat.L2PhaseRange = float64(bits.SBits(d, pos, 20)) * 0.0005
			pos += 20
			sat.L2LockTime = uint8(bits.UBits(d, pos, 7))
			pos += 7
			if shape.extended {
				sat.L2CNR = float64(bits.UBits(d, pos, 8)) * 0.25
				pos += 8
			}
		}
		obs.Satellites = append(obs.Satellites, sat)
	}
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return obs, nil
}
