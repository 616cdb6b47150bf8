package session

import "math"

// computeDOP builds the line-of-sight 4xN matrix from used satellites,
// forms A^T*A, inverts it, and reads off xdop/ydop/hdop/vdop/pdop/tdop/
// gdop from the diagonal (spec §4.D.4). Returns ok=false (leave DOPs
// NaN) when fewer than 4 usable satellites are present.
func computeDOP(sats []Satellite) (xdop, ydop, hdop, vdop, pdop, tdop, gdop float64, ok bool) {
	var rows [][4]float64
	for _, sv := range sats {
		if !sv.Used {
			continue
		}
		az := sv.Azimuth * math.Pi / 180
		el := sv.Elevation * math.Pi / 180
		cosEl := math.Cos(el)
		rows = append(rows, [4]float64{
			cosEl * math.Sin(az),
			cosEl * math.Cos(az),
			math.Sin(el),
			1,
		})
	}
	if len(rows) < 4 {
		return 0, 0, 0, 0, 0, 0, 0, false
	}

	var ata [4][4]float64
	for _, r := range rows {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				ata[i][j] += r[i] * r[j]
			}
		}
	}
	inv, ok := invert4x4(ata)
	if !ok {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	xdop = math.Sqrt(math.Abs(inv[0][0]))
	ydop = math.Sqrt(math.Abs(inv[1][1]))
	hdop = math.Sqrt(math.Abs(inv[0][0]) + math.Abs(inv[1][1]))
	vdop = math.Sqrt(math.Abs(inv[2][2]))
	tdop = math.Sqrt(math.Abs(inv[3][3]))
	pdop = math.Sqrt(hdop*hdop + vdop*vdop)
	gdop = math.Sqrt(pdop*pdop + tdop*tdop)
	return xdop, ydop, hdop, vdop, pdop, tdop, gdop, true
}

// invert4x4 inverts a 4x4 matrix via Gauss-Jordan elimination with a
// singularity check (spec §4.D.4).
func invert4x4(m [4][4]float64) ([4][4]float64, bool) {
	var aug [4][8]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			aug[i][j] = m[i][j]
		}
		aug[i][4+i] = 1
	}
	for col := 0; col < 4; col++ {
		pivot := col
		best := math.Abs(aug[col][col])
		for r := col + 1; r < 4; r++ {
			if v := math.Abs(aug[r][col]); v > best {
				best = v
				pivot = r
			}
		}
		if best < 1e-12 {
			return [4][4]float64{}, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		p := aug[col][col]
		for j := 0; j < 8; j++ {
			aug[col][j] /= p
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			for j := 0; j < 8; j++ {
				aug[r][j] -= f * aug[col][j]
			}
		}
	}
	var inv [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			inv[i][j] = aug[i][4+j]
		}
	}
	return inv, true
}

// fillErrorEstimates applies the UERE-scaled error model (spec §4.D.4)
// without overwriting driver-supplied values, and derives speed/track
// error estimates geometrically from the current and previous position
// error ellipses.
func (s *Session) fillErrorEstimates(cur *Fix) {
	uere := uereFor(cur.Status)
	if cur.Eph == 0 && !math.IsNaN(cur.HDOP) {
		cur.Eph = cur.HDOP * uere.p
	}
	if cur.Epx == 0 && !math.IsNaN(cur.XDOP) {
		cur.Epx = cur.XDOP * uere.h
	}
	if cur.Epy == 0 && !math.IsNaN(cur.YDOP) {
		cur.Epy = cur.YDOP * uere.h
	}
	if cur.Epv == 0 && !math.IsNaN(cur.VDOP) {
		cur.Epv = cur.VDOP * uere.v
	}
	if cur.Sep == 0 && !math.IsNaN(cur.PDOP) {
		cur.Sep = cur.PDOP * uere.p
	}

	prev := s.PrevFix
	if prev.Time.IsZero() || cur.Time.IsZero() {
		return
	}
	dt := cur.Time.Sub(prev.Time).Seconds()
	if dt <= 0.01 || cur.Eph == 0 || prev.Eph == 0 {
		return
	}
	cur.Eps = math.Hypot(cur.Eph, prev.Eph) / dt
	if cur.Speed > 0.01 {
		cur.Epd = (cur.Eps / cur.Speed) * 180 / math.Pi
	}
}
