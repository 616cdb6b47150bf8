package rtcm3

import "github.com/skywave-gnss/gnssd/internal/bits"

// SystemParameters is the decoded body of message 1013: the broadcast
// schedule the reference station uses, followed by a list of message
// IDs and their transmission intervals.
type SystemParameters struct {
	StationID   uint16
	ModifiedJD  uint16
	SecondsOfDay uint32
	LeapSeconds uint8
	Announcements []SystemParameterEntry
}

type SystemParameterEntry struct {
	MessageID     int
	Synchronous   bool
	TransmissionIntervalSeconds float64
}

// DecodeSystemParameters decodes message 1013.
func DecodeSystemParameters(msg *Message) (*SystemParameters, error) {
	if msg.Type != TypeSysParameters {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	sp := &SystemParameters{StationID: msg.StationID}
	sp.ModifiedJD = uint16(bits.UBits(d, pos, 16))
	pos += 16
	sp.SecondsOfDay = uint32(bits.UBits(d, pos, 17))
	pos += 17
	count := int(bits.UBits(d, pos, 5))
	pos += 5
	sp.LeapSeconds = uint8(bits.UBits(d, pos, 8))
	pos += 8
	sp.Announcements = make([]SystemParameterEntry, 0, count)
	for i := 0; i < count; i++ {
		if pos+29 > len(d)*8 {
			break
		}
		var e SystemParameterEntry
		e.MessageID = int(bits.UBits(d, pos, 12))
		pos += 12
		e.Synchronous = bits.UBits(d, pos, 1) != 0
		pos++
		e.TransmissionIntervalSeconds = float64(bits.UBits(d, pos, 16)) * 0.1
		pos += 16
		sp.Announcements = append(sp.Announcements, e)
	}
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return sp, nil
}

// HelmertTransform is the decoded body of message 1021: a
// datum-transformation parameter set relating the station's reference
// frame to a target coordinate system.
type HelmertTransform struct {
	SourceSystem string
	TargetSystem string
	TranslationX, TranslationY, TranslationZ float64 // meters
	RotationX, RotationY, RotationZ          float64 // arc-seconds
	Scale                                     float64 // ppm
}

// DecodeHelmertTransform decodes message 1021's source/target datum
// names and the 7-parameter Helmert/Molodensky transform.
func DecodeHelmertTransform(msg *Message) (*HelmertTransform, error) {
	if msg.Type != TypeHelmert {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	ht := &HelmertTransform{}
	ht.SourceSystem, pos = readLengthPrefixed(d, pos)
	ht.TargetSystem, pos = readLengthPrefixed(d, pos)
	pos += 2 // datum shift plane indicator + horizontal/vertical indicator
	ht.TranslationX = float64(bits.SBits(d, pos, 23)) * 0.001
	pos += 23
	ht.TranslationY = float64(bits.SBits(d, pos, 23)) * 0.001
	pos += 23
	ht.TranslationZ = float64(bits.SBits(d, pos, 23)) * 0.001
	pos += 23
	ht.RotationX = float64(bits.SBits(d, pos, 32)) * 0.00002
	pos += 32
	ht.RotationY = float64(bits.SBits(d, pos, 32)) * 0.00002
	pos += 32
	ht.RotationZ = float64(bits.SBits(d, pos, 32)) * 0.00002
	pos += 32
	ht.Scale = float64(bits.SBits(d, pos, 25)) * 0.00001
	pos += 25
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return ht, nil
}

// ResidualsGrid is the decoded body of message 1023: a regional
// horizontal/vertical residual correction grid relative to the
// Helmert-transformed datum.
type ResidualsGrid struct {
	GridPointsLatitude  int
	GridPointsLongitude int
	AverageNorth        float64
	AverageEast         float64
	AverageUp           float64
}

// DecodeResidualsGrid decodes message 1023's summary fields (the
// per-point residual array's grid-indexing scheme is station-specific
// and left to a higher layer that has the grid definition).
func DecodeResidualsGrid(msg *Message) (*ResidualsGrid, error) {
	if msg.Type != TypeResidualsGrid {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	rg := &ResidualsGrid{}
	rg.GridPointsLatitude = int(bits.UBits(d, pos, 8))
	pos += 8
	rg.GridPointsLongitude = int(bits.UBits(d, pos, 8))
	pos += 8
	rg.AverageNorth = float64(bits.SBits(d, pos, 15)) * 0.001
	pos += 15
	rg.AverageEast = float64(bits.SBits(d, pos, 15)) * 0.001
	pos += 15
	rg.AverageUp = float64(bits.SBits(d, pos, 15)) * 0.001
	pos += 15
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return rg, nil
}

// ProjectionParams is the decoded body of message 1025: a map
// projection (e.g. Lambert Conformal Conic / Oblique Mercator)
// associated with the target datum from message 1021.
type ProjectionParams struct {
	ProjectionType string
	LatitudeOrigin  float64 // degrees
	LongitudeOrigin float64 // degrees
	ScaleFactor     float64
	FalseEasting    float64 // meters
	FalseNorthing   float64 // meters
}

// DecodeProjectionParams decodes message 1025.
func DecodeProjectionParams(msg *Message) (*ProjectionParams, error) {
	if msg.Type != TypeProjectionParams {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	pp := &ProjectionParams{}
	pp.ProjectionType, pos = readLengthPrefixed(d, pos)
	pp.LatitudeOrigin = float64(bits.SBits(d, pos, 34)) * p2(-25) * 180 / piGNSS
	pos += 34
	pp.LongitudeOrigin = float64(bits.SBits(d, pos, 35)) * p2(-25) * 180 / piGNSS
	pos += 35
	pp.ScaleFactor = float64(bits.UBits(d, pos, 30)) * p2(-28)
	pos += 30
	pp.FalseEasting = float64(bits.SBits(d, pos, 37)) * 0.01
	pos += 37
	pp.FalseNorthing = float64(bits.SBits(d, pos, 37)) * 0.01
	pos += 37
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return pp, nil
}

// DecodeUTF8Text decodes message 1029: a free-form UTF-8 text message
// (station name, maintenance notice) associated with a station ID.
func DecodeUTF8Text(msg *Message) (string, error) {
	if msg.Type != TypeUTF8Text {
		return "", ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	pos += 16 // modified Julian day
	pos += 17 // UTC seconds of day
	charCount := int(bits.UBits(d, pos, 7))
	pos += 7
	byteLen := int(bits.UBits(d, pos, 8))
	pos += 8
	_ = charCount
	out := make([]byte, byteLen)
	for i := 0; i < byteLen; i++ {
		out[i] = byte(bits.UBits(d, pos, 8))
		pos += 8
	}
	if err := requireComplete(d, pos); err != nil {
		return "", err
	}
	return string(out), nil
}

// GLOCodePhaseBias is the decoded body of message 1230: per-signal
// GLONASS code-phase bias corrections, announced via a 4-bit presence
// mask (spec's Open-Question resolution: biases absent from the mask
// are left at zero rather than decoded).
type GLOCodePhaseBias struct {
	StationID    uint16
	AlignedWithCarrier bool
	BiasIndicator     uint8
	L1CA, L1P, L2CA, L2P float64 // meters, zero when the corresponding mask bit is clear
}

// DecodeGLOCodePhaseBias decodes message 1230.
func DecodeGLOCodePhaseBias(msg *Message) (*GLOCodePhaseBias, error) {
	if msg.Type != TypeGLOCodePhaseBias {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	b := &GLOCodePhaseBias{StationID: msg.StationID}
	b.AlignedWithCarrier = bits.UBits(d, pos, 1) != 0
	pos++
	pos += 3 // reserved
	mask := bits.UBits(d, pos, 4)
	pos += 4
	read := func() float64 {
		v := float64(bits.SBits(d, pos, 16)) * 0.02
		pos += 16
		return v
	}
	if mask&0x8 != 0 {
		b.L1CA = read()
	}
	if mask&0x4 != 0 {
		b.L1P = read()
	}
	if mask&0x2 != 0 {
		b.L2CA = read()
	}
	if mask&0x1 != 0 {
		b.L2P = read()
	}
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return b, nil
}
