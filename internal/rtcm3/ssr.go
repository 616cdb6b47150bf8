package rtcm3

import "github.com/skywave-gnss/gnssd/internal/bits"

// SSRCorrectionSet is the decoded body shared by the state-space-
// representation message families (orbit/clock 1057-1062, code bias
// 1063-1068, phase bias 1265-1270). Only the header and the
// per-satellite IDs are decoded uniformly; the correction payload
// itself (orbit deltas, clock polynomial, per-signal biases) differs
// by exact sub-type and precision class, so it is kept as the
// remaining undecoded tail (RawTail) for a caller that knows which of
// the six sub-types it is looking at.
type SSRCorrectionSet struct {
	MessageType   int
	System        int
	EpochTime     uint32
	UpdateInterval uint8
	MultipleMessage bool
	SatelliteRefDatum uint8
	IOD           uint8
	ProviderID    uint16
	SolutionID    uint8
	NumSatellites int
	SatelliteIDs  []int
	RawTail       []byte // remaining body bytes from the next whole byte, CRC excluded
}

// DecodeSSR decodes the common SSR header for any of the orbit/clock,
// code-bias or phase-bias message ranges.
func DecodeSSR(msg *Message) (*SSRCorrectionSet, error) {
	if !IsSSR(msg.Type) {
		return nil, ErrUnsupported
	}
	d := msg.Payload
	s := &SSRCorrectionSet{MessageType: msg.Type}
	pos := 48
	epochBits := 20
	s.EpochTime = uint32(bits.UBits(d, pos, epochBits))
	pos += epochBits
	s.UpdateInterval = uint8(bits.UBits(d, pos, 4))
	pos += 4
	s.MultipleMessage = bits.UBits(d, pos, 1) != 0
	pos++
	s.SatelliteRefDatum = uint8(bits.UBits(d, pos, 1))
	pos++
	s.IOD = uint8(bits.UBits(d, pos, 4))
	pos += 4
	s.ProviderID = uint16(bits.UBits(d, pos, 16))
	pos += 16
	s.SolutionID = uint8(bits.UBits(d, pos, 4))
	pos += 4
	s.NumSatellites = int(bits.UBits(d, pos, 6))
	pos += 6

	s.SatelliteIDs = make([]int, 0, s.NumSatellites)
	for i := 0; i < s.NumSatellites; i++ {
		if pos+6 > len(d)*8 {
			break
		}
		s.SatelliteIDs = append(s.SatelliteIDs, int(bits.UBits(d, pos, 6)))
		pos += 6
	}

	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}

	tailStart := (pos + 7) / 8
	tailEnd := len(d) - crcBytes
	if tailStart < tailEnd {
		s.RawTail = d[tailStart:tailEnd]
	}
	return s, nil
}
