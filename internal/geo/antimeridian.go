package geo

import "math"

// FixAntimeridian repairs a Polygon/MultiPolygon whose exterior ring
// crosses the 180th meridian, splitting it into a MultiPolygon per
// RFC 7946 §5.2. Geometries that do not cross the antimeridian, and holes
// of polygons that do, pass through unchanged — hole-splitting is out of
// scope for this implementation.
func FixAntimeridian(g *Geometry) (*Geometry, error) {
	polys, err := g.Polygons()
	if err != nil {
		return g, nil
	}
	var outPolys [][][]Position
	anyCrossed := false
	for _, rings := range polys {
		if len(rings) == 0 {
			continue
		}
		exterior := rings[0]
		holes := rings[1:]
		unwrapped := unwrapRing(exterior)
		lo, hi := lonRange(unwrapped)
		if lo >= -180 && hi <= 180 {
			outPolys = append(outPolys, rings)
			continue
		}
		anyCrossed = true
		split := splitAtAntimeridian(unwrapped)
		for _, ring := range split {
			polyRings := [][]Position{ring}
			polyRings = append(polyRings, holes...)
			outPolys = append(outPolys, polyRings)
		}
	}
	if !anyCrossed {
		return g, nil
	}
	if len(outPolys) == 1 {
		return &Geometry{Type: "Polygon", Coordinates: outPolys[0]}, nil
	}
	return &Geometry{Type: "MultiPolygon", Coordinates: outPolys}, nil
}

// unwrapRing removes the +/-360 degree jumps introduced by crossing the
// antimeridian, so the ring becomes a continuous (possibly out-of-range)
// path suitable for clipping.
func unwrapRing(ring []Position) []Position {
	out := make([]Position, len(ring))
	out[0] = ring[0]
	for i := 1; i < len(ring); i++ {
		prev := out[i-1]
		lon := ring[i].Lon()
		for lon-prev.Lon() > 180 {
			lon -= 360
		}
		for lon-prev.Lon() < -180 {
			lon += 360
		}
		out[i] = Position{lon, ring[i].Lat()}
	}
	return out
}

func lonRange(ring []Position) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range ring {
		if p.Lon() < lo {
			lo = p.Lon()
		}
		if p.Lon() > hi {
			hi = p.Lon()
		}
	}
	return
}

// splitAtAntimeridian clips an unwrapped ring into one closed ring per
// 360-degree-wide vertical strip it touches, shifting each result back
// into [-180, 180].
func splitAtAntimeridian(unwrapped []Position) [][]Position {
	lo, hi := lonRange(unwrapped)
	kMin := int(math.Floor((lo + 180) / 360))
	kMax := int(math.Floor((hi + 180) / 360))
	var out [][]Position
	for k := kMin; k <= kMax; k++ {
		stripLo := -180 + 360*float64(k)
		stripHi := 180 + 360*float64(k)
		clipped := clipStrip(unwrapped, stripLo, stripHi)
		if len(clipped) < 3 {
			continue
		}
		shifted := make([]Position, len(clipped))
		for i, p := range clipped {
			shifted[i] = Position{p.Lon() - 360*float64(k), p.Lat()}
		}
		if !samePoint(shifted[0], shifted[len(shifted)-1]) {
			shifted = append(shifted, shifted[0])
		}
		out = append(out, shifted)
	}
	return out
}

// clipStrip applies Sutherland-Hodgman clipping against the two vertical
// half-planes lon>=lo and lon<=hi.
func clipStrip(ring []Position, lo, hi float64) []Position {
	return clipRight(clipLeft(ring, hi), lo)
}

// clipLeft keeps the portion of ring with Lon() <= x.
func clipLeft(ring []Position, x float64) []Position {
	return clipHalfPlane(ring, func(p Position) bool { return p.Lon() <= x }, x, true)
}

// clipRight keeps the portion of ring with Lon() >= x.
func clipRight(ring []Position, x float64) []Position {
	return clipHalfPlane(ring, func(p Position) bool { return p.Lon() >= x }, x, false)
}

func clipHalfPlane(ring []Position, inside func(Position) bool, x float64, left bool) []Position {
	if len(ring) == 0 {
		return nil
	}
	var out []Position
	for i := 0; i < len(ring); i++ {
		cur := ring[i]
		prev := ring[(i-1+len(ring))%len(ring)]
		curIn := inside(cur)
		prevIn := inside(prev)
		if curIn != prevIn {
			out = append(out, intersectVertical(prev, cur, x))
		}
		if curIn {
			out = append(out, cur)
		}
	}
	_ = left
	return out
}

func intersectVertical(a, b Position, x float64) Position {
	if b.Lon() == a.Lon() {
		return Position{x, a.Lat()}
	}
	t := (x - a.Lon()) / (b.Lon() - a.Lon())
	lat := a.Lat() + t*(b.Lat()-a.Lat())
	return Position{x, lat}
}
