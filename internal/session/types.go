// Package session implements the per-device session engine (spec §4.D):
// it drives the packet lexer, dispatches recognized frames to the
// matching driver's parser, hunts autobaud on serial links, merges
// driver-reported fixes with derived fields, computes DOP and error
// estimates, and drives the NTRIP client sub-state machine.
package session

import (
	"time"

	"github.com/skywave-gnss/gnssd/internal/lexer"
)

// SourceType is the transport a device path resolves to (spec §3
// "Device session", §6 "Southbound — device URIs").
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceSerial
	SourceUSB
	SourceBluetooth
	SourcePTY
	SourceTCP
	SourceUDP
	SourceGPSD
	SourcePPSOnly
	SourcePipe
	SourceCAN
	SourceACM
	SourceBlock
)

// ServiceType distinguishes a plain sensor from a correction-stream
// service (spec §3).
type ServiceType int

const (
	ServiceSensor ServiceType = iota
	ServiceDGPSIP
	ServiceNTRIP
)

// OpenResult is the outcome of Open (spec §4.D.1).
type OpenResult int

const (
	Unallocated OpenResult = iota
	Opened
	Placeholding
)

// PollStatus is the result of one Multipoll iteration (spec §4.D.1).
type PollStatus int

const (
	Ready PollStatus = iota
	Unready
	Unchanged
	EOFStatus
	ErrorStatus
)

// ReportMask is the bitmask of fields a report carries, mirroring the
// "mask" the original passes between the driver parser and the fan-out
// (spec §3 "merged report mask", §4.E.2).
type ReportMask uint32

const (
	TimeSet ReportMask = 1 << iota
	LatlonSet
	AltitudeSet
	SpeedSet
	TrackSet
	ClimbSet
	StatusSet
	ModeSet
	DopSet
	UsedSet
	RTCM2Set
	RTCM3Set
	DeviceIDSet
	ClearIs // start of a new reporting cycle
	ReportIs
)

// FixStatus mirrors the NMEA/driver fix-quality enumeration the error
// model switches on (spec §4.D.4 UERE table).
type FixStatus int

const (
	StatusNoFix FixStatus = iota
	StatusFix
	StatusDGPSFix
	StatusRTKFix
	StatusRTKFloat
)

// Satellite is one entry of the skyview used for DOP computation
// (spec §4.D.4).
type Satellite struct {
	PRN       int
	Azimuth   float64 // degrees
	Elevation float64 // degrees
	Used      bool
	SNR       float64
}

// Fix is one epoch's navigation solution, as merged from driver-supplied
// and derived fields (spec §3 "current-fix, last-fix and previous-fix").
type Fix struct {
	Time time.Time

	Lat, Lon    float64
	AltHAE      float64 // height above ellipsoid, meters
	AltMSL      float64 // height above mean sea level, meters
	GeoidSep    float64
	HaveGeoid   bool
	MagVar      float64
	HaveMagVar  bool

	ECEFX, ECEFY, ECEFZ    float64
	ECEFVX, ECEFVY, ECEFVZ float64
	HaveECEF               bool

	Speed    float64 // m/s over ground
	Track    float64 // degrees true, [0,360)
	MagTrack float64 // degrees magnetic, [0,360)
	ClimbM   float64 // m/s
	VelN, VelE, VelD float64

	Status FixStatus
	Mode   int // 1=no fix, 2=2D, 3=3D, matches NMEA GSA mode2

	XDOP, YDOP, HDOP, VDOP, PDOP, TDOP, GDOP float64

	Eph, Epv, Epx, Epy, Sep float64
	Eps, Epd                float64 // speed / track error estimates

	Satellites []Satellite

	Mask ReportMask
}

// clamp range for sanity-checked velocity fields (spec §4.D.4).
const velocitySanityLimit = 9999.9

// uereSet holds the horizontal/vertical/position UERE constants the
// error model scales DOP by (spec §4.D.4), selected by DGPS status.
type uereSet struct{ h, v, p float64 }

var (
	uereNoDGPS = uereSet{h: 15.0, v: 23.0, p: 19.0}
	uereDGPS   = uereSet{h: 3.75, v: 5.75, p: 4.75}
)

func uereFor(status FixStatus) uereSet {
	if status == StatusDGPSFix || status == StatusRTKFix || status == StatusRTKFloat {
		return uereDGPS
	}
	return uereNoDGPS
}

// Event is a lifecycle notification passed to Driver.EventHook (spec
// §4.D.2 "reactivate"/"driver-switch"/"deactivate" events).
type Event int

const (
	EventActivate Event = iota
	EventReactivate
	EventDriverSwitch
	EventDeactivate
)

// Driver is one protocol's parse/control binding (spec §4.D.2). Only
// ParsePacket is required; the rest are optional hooks a given protocol
// may not implement.
type Driver struct {
	Name       string
	PacketType lexer.Type
	MinCycle   time.Duration

	ProbeDetect func(s *Session) bool
	ParsePacket func(s *Session, f lexer.Frame) (ReportMask, error)
	EventHook   func(s *Session, ev Event)

	ModeSwitcher  func(s *Session, mode int) error
	SpeedSwitcher func(s *Session, rate int) error
	RateSwitcher  func(s *Session, hz float64) error
	RTCMWriter    func(s *Session, payload []byte) error

	Sticky bool
}
