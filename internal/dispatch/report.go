package dispatch

import (
	"encoding/json"
	"math"
	"time"

	"github.com/skywave-gnss/gnssd/internal/session"
)

// tpvReport is the JSON encode call site SPEC_FULL.md's domain-stack
// table wires here; the wire dialect's full grammar (field names beyond
// this subset, client-negotiated verbosity) is the named external
// collaborator per spec.md §1/§6 — this is deliberately the minimal
// shape needed to exercise encoding/json from the fan-out path.
type tpvReport struct {
	Class  string  `json:"class"`
	Device string  `json:"device,omitempty"`
	Time   string  `json:"time,omitempty"`
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Alt    float64 `json:"altHAE,omitempty"`
	AltMSL float64 `json:"altMSL,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Track  float64 `json:"track,omitempty"`
	Climb  float64 `json:"climb,omitempty"`
	Mode   int     `json:"mode"`
	EPH    float64 `json:"eph,omitempty"`
	EPV    float64 `json:"epv,omitempty"`
	EPX    float64 `json:"epx,omitempty"`
	EPY    float64 `json:"epy,omitempty"`
}

type skyReport struct {
	Class string     `json:"class"`
	Device string    `json:"device,omitempty"`
	XDOP  float64    `json:"xdop,omitempty"`
	YDOP  float64    `json:"ydop,omitempty"`
	HDOP  float64    `json:"hdop,omitempty"`
	VDOP  float64    `json:"vdop,omitempty"`
	PDOP  float64    `json:"pdop,omitempty"`
	TDOP  float64    `json:"tdop,omitempty"`
	GDOP  float64    `json:"gdop,omitempty"`
}

type versionReport struct {
	Class     string `json:"class"`
	Release   string `json:"release"`
	Rev       string `json:"rev"`
	ProtoMaj  int    `json:"proto_major"`
	ProtoMin  int    `json:"proto_minor"`
}

type errorReport struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

func zeroAsOmit(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func fixToTPV(path string, f session.Fix) []byte {
	out := tpvReport{
		Class:  "TPV",
		Device: path,
		Lat:    f.Lat, Lon: f.Lon,
		Alt: zeroAsOmit(f.AltHAE), AltMSL: zeroAsOmit(f.AltMSL),
		Speed: zeroAsOmit(f.Speed), Track: zeroAsOmit(f.Track), Climb: zeroAsOmit(f.ClimbM),
		Mode: f.Mode,
		EPH:  zeroAsOmit(f.Eph), EPV: zeroAsOmit(f.Epv),
		EPX: zeroAsOmit(f.Epx), EPY: zeroAsOmit(f.Epy),
	}
	if !f.Time.IsZero() {
		out.Time = f.Time.UTC().Format(time.RFC3339Nano)
	}
	b, _ := json.Marshal(out)
	return append(b, '\r', '\n')
}

func fixToSky(path string, f session.Fix) []byte {
	out := skyReport{
		Class: "SKY", Device: path,
		XDOP: zeroAsOmit(f.XDOP), YDOP: zeroAsOmit(f.YDOP), HDOP: zeroAsOmit(f.HDOP),
		VDOP: zeroAsOmit(f.VDOP), PDOP: zeroAsOmit(f.PDOP), TDOP: zeroAsOmit(f.TDOP), GDOP: zeroAsOmit(f.GDOP),
	}
	b, _ := json.Marshal(out)
	return append(b, '\r', '\n')
}

func versionLine() []byte {
	b, _ := json.Marshal(versionReport{Class: "VERSION", Release: "gnssd", Rev: "core", ProtoMaj: 3, ProtoMin: 15})
	return append(b, '\r', '\n')
}

func errorLine(msg string) []byte {
	b, _ := json.Marshal(errorReport{Class: "ERROR", Message: msg})
	return append(b, '\r', '\n')
}
