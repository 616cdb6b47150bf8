// Package top708 binds a TOPGNSS TOP708-class NMEA sensor into a
// session.Driver (spec §4.D.2): the device-specific knowledge —
// default baud, the $PMTK251 baud-change command, NMEA-only output —
// becomes parse/speed-switcher hooks plugged into the shared
// session transport (internal/session) instead of a standalone serial
// wrapper with its own open/reconnect loop.
package top708

import (
	"fmt"
	"strings"
	"time"

	"github.com/skywave-gnss/gnssd/internal/lexer"
	"github.com/skywave-gnss/gnssd/internal/session"
	gnmea "github.com/skywave-gnss/gnssd/pkg/gnssgo/nmea"
)

// DefaultBaud is the TOP708's factory baud rate (spec §9 autobaud
// ladder first rung).
const DefaultBaud = 38400

// NewDriver returns the session.Driver binding for a TOP708-class NMEA
// sensor: any device whose only output is NMEA-0183 sentences can use
// this driver, since the parse logic itself is protocol-level, not
// vendor-specific.
func NewDriver() *session.Driver {
	return &session.Driver{
		Name:          "TOP708-NMEA",
		PacketType:    lexer.NMEA,
		MinCycle:      time.Second,
		ParsePacket:   parseNMEA,
		SpeedSwitcher: speedSwitcher,
	}
}

// parseNMEA dispatches one accepted NMEA frame to the gnssgo NMEA
// parser and folds the result into the session's current fix.
func parseNMEA(s *session.Session, f lexer.Frame) (session.ReportMask, error) {
	sentence := strings.TrimRight(string(f.Payload), "\r\n")
	if !gnmea.ValidateChecksum(sentence) {
		return 0, fmt.Errorf("top708: bad NMEA checksum: %q", sentence)
	}

	fields := strings.Split(sentence, ",")
	if len(fields) == 0 {
		return 0, fmt.Errorf("top708: empty sentence")
	}
	sentenceType := fields[0]
	if len(sentenceType) < 3 {
		return 0, fmt.Errorf("top708: short sentence type %q", sentenceType)
	}

	switch sentenceType[len(sentenceType)-3:] {
	case "GGA":
		return parseGGA(s, sentence)
	case "RMC":
		return parseRMC(s, sentence)
	default:
		// Sentence types this driver doesn't extract fields from
		// still count as a cycle boundary (spec §4.D.3) but carry no
		// new fix fields.
		return session.ClearIs, nil
	}
}

func parseGGA(s *session.Session, sentence string) (session.ReportMask, error) {
	gga, err := gnmea.ParseGGA(sentence)
	if err != nil {
		return 0, fmt.Errorf("top708: parse GGA: %w", err)
	}
	var mask session.ReportMask
	fix := &s.CurrentFix
	if gga.FixQuality > 0 {
		fix.Lat = gga.Latitude
		fix.Lon = gga.Longitude
		fix.AltMSL = gga.Altitude
		mask |= session.LatlonSet | session.AltitudeSet
		fix.Status = fixStatusFromGGAQuality(gga.FixQuality)
		mask |= session.StatusSet
	}
	mask |= session.ClearIs
	return mask, nil
}

func parseRMC(s *session.Session, sentence string) (session.ReportMask, error) {
	rmc, err := gnmea.ParseNMEA(sentence)
	_ = rmc
	if err != nil {
		return 0, fmt.Errorf("top708: parse RMC: %w", err)
	}
	fields := strings.Split(sentence, ",")
	// $GxRMC,time,status,lat,N/S,lon,E/W,speed,course,date,...
	if len(fields) < 10 {
		return 0, fmt.Errorf("top708: short RMC sentence")
	}
	var mask session.ReportMask
	fix := &s.CurrentFix
	if fields[2] == "A" {
		if lat, err := gnmea.ParseLatLon(fields[3], fields[4]); err == nil {
			fix.Lat = lat
			mask |= session.LatlonSet
		}
		if lon, err := gnmea.ParseLatLon(fields[5], fields[6]); err == nil {
			fix.Lon = lon
			mask |= session.LatlonSet
		}
		if speedKnots, err := parseFloat(fields[7]); err == nil {
			fix.Speed = speedKnots * 0.514444
			mask |= session.SpeedSet
		}
		if course, err := parseFloat(fields[8]); err == nil {
			fix.Track = course
			mask |= session.TrackSet
		}
		if t, err := gnmea.NMEATime(fields[1], fields[9]); err == nil {
			fix.Time = t
			mask |= session.TimeSet
		}
	}
	return mask | session.ReportIs, nil
}

func parseFloat(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%f", &v)
	return v, err
}

// fixStatusFromGGAQuality maps the NMEA GGA fix-quality indicator to
// the FixStatus the UERE error-model table switches on (spec §4.D.4).
func fixStatusFromGGAQuality(quality int) session.FixStatus {
	switch quality {
	case 0:
		return session.StatusNoFix
	case 2:
		return session.StatusDGPSFix
	case 4:
		return session.StatusRTKFix
	case 5:
		return session.StatusRTKFloat
	default:
		return session.StatusFix
	}
}

// speedSwitcher sends the TOP708's vendor baud-change sentence
// ($PMTK251,<rate>*HH) and then reconfigures the local serial port.
// Unlike a disconnect/reconnect round-trip, the session keeps the
// descriptor open throughout.
func speedSwitcher(s *session.Session, rate int) error {
	cmd := fmt.Sprintf("PMTK251,%d", rate)
	checksum := lexer.NMEAChecksum([]byte("$" + cmd))
	line := fmt.Sprintf("$%s*%02X\r\n", cmd, checksum)
	if _, err := s.WriteRaw([]byte(line)); err != nil {
		return fmt.Errorf("top708: send baud command: %w", err)
	}
	time.Sleep(50 * time.Millisecond)
	return s.SetBaud(rate)
}
