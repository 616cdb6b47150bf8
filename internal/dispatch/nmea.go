package dispatch

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/skywave-gnss/gnssd/internal/lexer"
	"github.com/skywave-gnss/gnssd/internal/session"
)

// synthesizeGGA and synthesizeRMC build pseudo-NMEA sentences from a
// merged Fix for nmea-on subscribers (spec §4.E.2 "synthesize
// pseudo-NMEA"), reusing the teacher's `pkg/gnssgo/nmea` field layout
// (GGAData/RMCData) in reverse and the lexer's own NMEA checksum
// primitive for the trailer, rather than relaying the driver's raw
// sentence verbatim.
func synthesizeGGA(f session.Fix) string {
	body := fmt.Sprintf("GPGGA,%s,%s,%s,%d,%02d,%.1f,%.3f,M,%.3f,M,,",
		hhmmss(f.Time), latString(f.Lat), lonString(f.Lon),
		ggaQuality(f.Status), len(f.Satellites), f.HDOP, f.AltMSL, f.GeoidSep)
	return withChecksum(body)
}

func synthesizeRMC(f session.Fix, prev session.Fix) string {
	status := "V"
	if f.Status != session.StatusNoFix {
		status = "A"
	}
	body := fmt.Sprintf("GPRMC,%s,%s,%s,%s,%.1f,%.1f,%s,,",
		hhmmss(f.Time), status, latString(f.Lat), lonString(f.Lon),
		f.Speed*1.9438445, f.Track, ddmmyy(f.Time))
	return withChecksum(body)
}

func withChecksum(body string) string {
	cs := lexer.NMEAChecksum([]byte("$" + body))
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

func hhmmss(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("150405.00")
}

func ddmmyy(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("020106")
}

func latString(lat float64) string {
	dir := "N"
	if lat < 0 {
		dir = "S"
		lat = -lat
	}
	deg := math.Floor(lat)
	min := (lat - deg) * 60
	return fmt.Sprintf("%02d%08.5f,%s", int(deg), min, dir)
}

func lonString(lon float64) string {
	dir := "E"
	if lon < 0 {
		dir = "W"
		lon = -lon
	}
	deg := math.Floor(lon)
	min := (lon - deg) * 60
	return fmt.Sprintf("%03d%08.5f,%s", int(deg), min, dir)
}

// ggaQuality maps the session's fix-status enumeration onto the GGA
// quality indicator (spec §4.D.4 DGPS/no-DGPS UERE selector reused as
// the wire-visible quality digit).
func ggaQuality(status session.FixStatus) int {
	switch status {
	case session.StatusFix:
		return 1
	case session.StatusDGPSFix:
		return 2
	case session.StatusRTKFix:
		return 4
	case session.StatusRTKFloat:
		return 5
	default:
		return 0
	}
}

// hexDump renders a binary frame as an upper-case hex string for
// raw-level==1 subscribers of binary protocols (spec §4.E.2.4).
func hexDump(payload []byte) string {
	var b strings.Builder
	for _, c := range payload {
		fmt.Fprintf(&b, "%02X", c)
	}
	b.WriteString("\r\n")
	return b.String()
}

// isTextual reports whether a frame's protocol is ASCII-framed, so raw
// mode can copy it verbatim instead of hex-dumping it (spec §4.E.2.4).
func isTextual(t lexer.Type) bool {
	switch t {
	case lexer.NMEA, lexer.AIS, lexer.COMMENT, lexer.GARMINTEXT, lexer.JSON, lexer.GREIS:
		return true
	default:
		return false
	}
}
