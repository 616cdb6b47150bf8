package rtcm3

import "github.com/skywave-gnss/gnssd/internal/bits"

// StationXYZ is the decoded body of message types 1005/1006 (spec
// §4.C.3). Height is zero and HasHeight false for a bare 1005.
type StationXYZ struct {
	StationID      uint16
	ITRFRealization uint8
	GPS            bool
	GLONASS        bool
	Galileo        bool
	ReferenceOnly  bool
	SingleOscillator bool
	X, Y, Z        float64 // ECEF, meters
	HasHeight      bool
	AntennaHeight  float64 // meters, only when HasHeight
}

func decodeStationXYZCommon(msg *Message) (StationXYZ, int) {
	d := msg.Payload
	pos := 48
	sc := StationXYZ{StationID: msg.StationID}
	sc.ITRFRealization = uint8(bits.UBits(d, pos, 6))
	pos += 6
	sc.GPS = bits.UBits(d, pos, 1) != 0
	pos++
	sc.GLONASS = bits.UBits(d, pos, 1) != 0
	pos++
	sc.Galileo = bits.UBits(d, pos, 1) != 0
	pos++
	sc.ReferenceOnly = bits.UBits(d, pos, 1) != 0
	pos++
	sc.SingleOscillator = bits.UBits(d, pos, 1) != 0
	pos++
	pos++ // reserved
	sc.X = float64(bits.SBits(d, pos, 38)) * 0.0001
	pos += 38
	sc.Y = float64(bits.SBits(d, pos, 38)) * 0.0001
	pos += 38
	sc.Z = float64(bits.SBits(d, pos, 38)) * 0.0001
	pos += 38
	// pos is now 174: the fixed offset DecodeStationXYZHeight reads the
	// antenna height field from in message 1006.
	return sc, pos
}

// DecodeStationXYZ decodes message 1005.
func DecodeStationXYZ(msg *Message) (*StationXYZ, error) {
	if msg.Type != TypeStationXYZ {
		return nil, ErrUnsupported
	}
	sc, pos := decodeStationXYZCommon(msg)
	if err := requireComplete(msg.Payload, pos); err != nil {
		return nil, err
	}
	return &sc, nil
}

// DecodeStationXYZHeight decodes message 1006 (station XYZ plus
// antenna height).
func DecodeStationXYZHeight(msg *Message) (*StationXYZ, error) {
	if msg.Type != TypeStationXYZHeight {
		return nil, ErrUnsupported
	}
	sc, pos := decodeStationXYZCommon(msg)
	sc.HasHeight = true
	sc.AntennaHeight = float64(bits.UBits(msg.Payload, 174, 16)) * 0.0001
	pos += 16
	if err := requireComplete(msg.Payload, pos); err != nil {
		return nil, err
	}
	return &sc, nil
}

// AntennaDescriptor is the decoded body of message 1007 (and the
// leading fields shared with 1008/1033).
type AntennaDescriptor struct {
	StationID      uint16
	SetupID        uint8
	AntennaType    string
	SerialNumber   string // set only when decoded from 1008
}

func readLengthPrefixed(d []byte, pos int) (string, int) {
	length := int(bits.UBits(d, pos, 8))
	pos += 8
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = byte(bits.UBits(d, pos, 8))
		pos += 8
	}
	return string(out), pos
}

// DecodeAntennaDescriptor decodes message 1007.
func DecodeAntennaDescriptor(msg *Message) (*AntennaDescriptor, error) {
	if msg.Type != TypeAntennaDesc {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	ad := &AntennaDescriptor{StationID: msg.StationID}
	ad.AntennaType, pos = readLengthPrefixed(d, pos)
	ad.SetupID = uint8(bits.UBits(d, pos, 8))
	pos += 8
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return ad, nil
}

// DecodeAntennaDescriptorSerial decodes message 1008.
func DecodeAntennaDescriptorSerial(msg *Message) (*AntennaDescriptor, error) {
	if msg.Type != TypeAntennaDescSerial {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	ad := &AntennaDescriptor{StationID: msg.StationID}
	ad.AntennaType, pos = readLengthPrefixed(d, pos)
	ad.SetupID = uint8(bits.UBits(d, pos, 8))
	pos += 8
	ad.SerialNumber, pos = readLengthPrefixed(d, pos)
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return ad, nil
}

// ReceiverAntenna is the decoded body of message 1033.
type ReceiverAntenna struct {
	StationID        uint16
	ReceiverType     string
	ReceiverFirmware string
	ReceiverSerial   string
	AntennaType      string
	AntennaSerial    string
	SetupID          uint8
}

// DecodeReceiverAntenna decodes message 1033.
func DecodeReceiverAntenna(msg *Message) (*ReceiverAntenna, error) {
	if msg.Type != TypeReceiverAntenna {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	pos := 48
	ri := &ReceiverAntenna{StationID: msg.StationID}
	ri.AntennaType, pos = readLengthPrefixed(d, pos)
	ri.SetupID = uint8(bits.UBits(d, pos, 8))
	pos += 8
	ri.AntennaSerial, pos = readLengthPrefixed(d, pos)
	ri.ReceiverType, pos = readLengthPrefixed(d, pos)
	ri.ReceiverFirmware, pos = readLengthPrefixed(d, pos)
	ri.ReceiverSerial, pos = readLengthPrefixed(d, pos)
	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return ri, nil
}
