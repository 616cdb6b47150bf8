package rtcm3

import "github.com/skywave-gnss/gnssd/internal/bits"

// msmHeaderMinBytes is the spec §4.C.1 minimum body length of an MSM
// message, checked against Message.Length. The fixed fields from type
// and station ID through the signal mask take 169 bits, one more than
// 21 bytes hold, so a body of exactly 21 bytes passes this check and is
// then rejected by requireComplete.
const msmHeaderMinBytes = 21

// msmMaxCells is the spec §4.C.4 step 5 bound on n_sat * n_sig.
const msmMaxCells = 64

// MSMHeader is the common header shared by every MSM1-7 message (spec
// §4.C.4). SatelliteMask/SignalMask/CellMask follow the RTCM3 MSM
// convention: bit i of SatelliteMask set means satellite i+1 is
// present; bit j of SignalMask set means signal slot j+1 is present;
// CellMask has NumSatellites*NumSignals bits, row-major by satellite.
type MSMHeader struct {
	MessageType    int
	StationID      uint16
	System         int
	Level          int // 1-7
	Epoch          uint32
	MultipleMessage bool
	IODS           uint8
	ClockSteering  uint8
	ExternalClock  uint8
	SmoothingFlag  bool
	SmoothingInterval uint8
	SatelliteMask  uint64
	SignalMask     uint64 // only low 32 bits used
	CellMask       []bool
	NumSatellites  int
	NumSignals     int
	NumCells       int
}

// MSMSatellite is the per-satellite portion of an MSM body.
type MSMSatellite struct {
	ID             int
	RoughRangeMS   uint8   // integer milliseconds
	ExtendedInfo   uint8   // MSM5/7 only
	RangeModuloMS  float64 // fractional milliseconds within RoughRangeMS
	RoughRangeRate float64 // m/s, MSM5/7 only
}

// MSMSignal is one satellite-signal cell's decoded observables. Zero
// fields mean that component isn't carried by this MSM level (e.g.
// PhaseRangeMeters is zero for MSM1).
type MSMSignal struct {
	SatelliteID        int
	SignalSlot         int // 1-based position within SignalMask
	PseudorangeMeters  float64
	PhaseRangeMeters   float64 // phase expressed in the same length units as pseudorange; converting to cycles needs a per-signal wavelength table this package does not carry
	LockTime           uint16
	HalfCycleAmbiguity bool
	CNR                float64 // dB-Hz
	PhaseRangeRateMPS  float64
}

// MSM is the fully decoded body of any RTCM3 MSM1-7 message.
type MSM struct {
	Header     MSMHeader
	Satellites []MSMSatellite
	Signals    []MSMSignal
}

// DecodeMSM decodes any RTCM3 MSM1-7 message for any constellation.
func DecodeMSM(msg *Message) (*MSM, error) {
	sys, level, ok := IsMSM(msg.Type)
	if !ok {
		return nil, ErrUnsupported
	}
	if msg.Length < msmHeaderMinBytes {
		return nil, ErrTruncatedBody
	}
	d := msg.Payload
	pos := 48

	h := MSMHeader{MessageType: msg.Type, StationID: msg.StationID, System: sys, Level: level}
	epochBits := 30
	if sys == SysGLONASS {
		epochBits = 27
	}
	h.Epoch = uint32(bits.UBits(d, pos, epochBits))
	pos += epochBits
	h.MultipleMessage = bits.UBits(d, pos, 1) != 0
	pos++
	h.IODS = uint8(bits.UBits(d, pos, 3))
	pos += 3
	pos += 7 // reserved
	h.ClockSteering = uint8(bits.UBits(d, pos, 2))
	pos += 2
	h.ExternalClock = uint8(bits.UBits(d, pos, 2))
	pos += 2
	h.SmoothingFlag = bits.UBits(d, pos, 1) != 0
	pos++
	h.SmoothingInterval = uint8(bits.UBits(d, pos, 3))
	pos += 3

	h.SatelliteMask = bits.UBits64(d, pos, 64)
	pos += 64
	h.SignalMask = bits.UBits64(d, pos, 32)
	pos += 32

	h.NumSatellites = bits.PopCount64(h.SatelliteMask)
	h.NumSignals = bits.PopCount64(h.SignalMask)

	if h.NumSatellites == 0 || h.NumSatellites*h.NumSignals > msmMaxCells {
		return nil, ErrInvalidCellCount
	}

	cellBits := h.NumSatellites * h.NumSignals
	h.CellMask = make([]bool, cellBits)
	for i := 0; i < cellBits; i++ {
		h.CellMask[i] = bits.UBits(d, pos, 1) != 0
		if h.CellMask[i] {
			h.NumCells++
		}
		pos++
	}

	satIDs := maskToIDs(h.SatelliteMask, 64)
	sigSlots := maskToIDs(h.SignalMask, 32)

	m := &MSM{Header: h}
	m.Satellites = make([]MSMSatellite, h.NumSatellites)
	for i := range m.Satellites {
		m.Satellites[i].ID = satIDs[i]
	}

	hasExtSatInfo := level == 5 || level == 7
	hasSatRangeRate := level == 5 || level == 7
	for i := range m.Satellites {
		m.Satellites[i].RoughRangeMS = uint8(bits.UBits(d, pos, 8))
		pos += 8
	}
	if hasExtSatInfo {
		for i := range m.Satellites {
			m.Satellites[i].ExtendedInfo = uint8(bits.UBits(d, pos, 4))
			pos += 4
		}
	}
	moduloBits, moduloScale := msmModuloWidth(level)
	for i := range m.Satellites {
		m.Satellites[i].RangeModuloMS = float64(bits.UBits(d, pos, moduloBits)) * moduloScale
		pos += moduloBits
	}
	if hasSatRangeRate {
		for i := range m.Satellites {
			m.Satellites[i].RoughRangeRate = float64(bits.SBits(d, pos, 14))
			pos += 14
		}
	}

	satIndexByID := make(map[int]int, len(satIDs))
	for i, id := range satIDs {
		satIndexByID[id] = i
	}

	m.Signals = make([]MSMSignal, 0, h.NumCells)
	cellSatID := make([]int, 0, h.NumCells)
	cellSigSlot := make([]int, 0, h.NumCells)
	idx := 0
	for _, satID := range satIDs {
		for _, slot := range sigSlots {
			if h.CellMask[idx] {
				cellSatID = append(cellSatID, satID)
				cellSigSlot = append(cellSigSlot, slot)
				m.Signals = append(m.Signals, MSMSignal{SatelliteID: satID, SignalSlot: slot})
			}
			idx++
		}
	}

	hasPseudorange := level != 2
	hasPhase := level != 1
	hasLock := level != 1
	hasCNR := level == 4 || level == 5 || level == 6 || level == 7
	hasRate := level == 5 || level == 7
	extended := level == 6 || level == 7

	prBits, prScale := 15, 1.0/16777216.0 // 2^-24
	if extended {
		prBits, prScale = 20, 1.0/536870912.0 // 2^-29
	}
	phBits, phScale := 22, 1.0/536870912.0 // 2^-29
	lockBits := 4
	if extended {
		phBits, phScale = 24, 1.0/2147483648.0 // 2^-31
		lockBits = 10
	}
	cnrBits, cnrScale := 6, 1.0
	if extended {
		cnrBits, cnrScale = 10, 0.0625
	}

	if hasPseudorange {
		for i := range m.Signals {
			sat := &m.Satellites[satIndexByID[cellSatID[i]]]
			fine := float64(bits.SBits(d, pos, prBits)) * prScale
			m.Signals[i].PseudorangeMeters = (float64(sat.RoughRangeMS) + sat.RangeModuloMS + fine) * speedOfLight * 1e-3
			pos += prBits
		}
	}
	if hasPhase {
		for i := range m.Signals {
			sat := &m.Satellites[satIndexByID[cellSatID[i]]]
			fine := float64(bits.SBits(d, pos, phBits)) * phScale
			m.Signals[i].PhaseRangeMeters = (float64(sat.RoughRangeMS) + sat.RangeModuloMS + fine) * speedOfLight * 1e-3
			pos += phBits
		}
	}
	if hasLock {
		for i := range m.Signals {
			m.Signals[i].LockTime = uint16(bits.UBits(d, pos, lockBits))
			pos += lockBits
		}
	}
	if hasPhase {
		for i := range m.Signals {
			m.Signals[i].HalfCycleAmbiguity = bits.UBits(d, pos, 1) != 0
			pos++
		}
	}
	if hasCNR {
		for i := range m.Signals {
			m.Signals[i].CNR = float64(bits.UBits(d, pos, cnrBits)) * cnrScale
			pos += cnrBits
		}
	}
	if hasRate {
		for i := range m.Signals {
			sat := &m.Satellites[satIndexByID[cellSatID[i]]]
			fine := float64(bits.SBits(d, pos, 15)) * 0.0001
			m.Signals[i].PhaseRangeRateMPS = sat.RoughRangeRate + fine
			pos += 15
		}
	}

	if err := requireComplete(d, pos); err != nil {
		return nil, err
	}
	return m, nil
}

// msmModuloWidth returns the rough-range modulo-1-ms field width and
// scale. This is fixed across every MSM level (spec §4.C.4 step 7,
// "All levels: 10-bit rough-range modulo-1-ms per sat"); only the
// per-signal fine pseudorange (step 8, see prBits/prScale above)
// varies with level.
func msmModuloWidth(level int) (bits int, scale float64) {
	return 10, 1.0 / 1024.0
}

func maskToIDs(mask uint64, width int) []int {
	ids := make([]int, 0, width)
	for i := 0; i < width; i++ {
		if mask&(1<<uint(i)) != 0 {
			ids = append(ids, i+1)
		}
	}
	return ids
}
