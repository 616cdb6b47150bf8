package session

import "math"

// geoidSeparation and magneticVariation are coarse (lat,lon)-keyed
// table lookups standing in for the original's full EGM96/WMM grids
// (spec §4.D.4: "from a table on (lat,lon) if not provided"). A
// production deployment would ship the real grids; this core only
// needs to fill the field when a driver omits it, not reproduce
// geodesy to survey accuracy.
func geoidSeparation(lat, lon float64) float64 {
	// First-order approximation: a single low-degree spherical-harmonic
	// term capturing the dominant equatorial bulge/polar-flattening
	// signal (EGM96 N ranges roughly -107m to +85m globally).
	latRad := lat * math.Pi / 180
	return 30 * math.Sin(2*latRad)
}

func magneticVariation(lat, lon float64) float64 {
	// Coarse dipole-model approximation of declination; adequate only
	// as a driver-omitted fallback, never a navigation-grade source.
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	return 10 * math.Sin(lonRad) * math.Cos(latRad)
}
