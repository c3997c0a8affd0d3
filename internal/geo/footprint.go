package geo

import "fmt"

// ShapeFromFootprint takes a flat [lat, lon, lat, lon, ...] list (the shape
// scene metadata commonly arrives in), swaps each pair to [lon, lat],
// closes the ring, drops consecutive duplicate points, winds it
// counter-clockwise, and repairs it across the antimeridian.
// Self-intersections are not detected or repaired.
func ShapeFromFootprint(flat []float64, rounding int) (*Geometry, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("geo: footprint has an odd number of coordinates")
	}
	if len(flat) < 6 {
		return nil, fmt.Errorf("geo: footprint needs at least 3 points")
	}
	ring := make([]Position, 0, len(flat)/2+1)
	for i := 0; i+1 < len(flat); i += 2 {
		lat, lon := flat[i], flat[i+1]
		ring = append(ring, Position{round(lon, rounding), round(lat, rounding)})
	}
	if !samePoint(ring[0], ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	ring = dedupeConsecutive(ring)
	ring = ensureWinding(ring, true) // exterior rings wind counter-clockwise per RFC 7946.

	g := &Geometry{Type: "Polygon", Coordinates: [][]Position{ring}}
	return FixAntimeridian(g)
}

func samePoint(a, b Position) bool {
	return a.Lon() == b.Lon() && a.Lat() == b.Lat()
}

func dedupeConsecutive(ring []Position) []Position {
	out := ring[:0:0]
	for i, p := range ring {
		if i == 0 || !samePoint(p, ring[i-1]) {
			out = append(out, p)
		}
	}
	return out
}

// signedArea computes twice the signed area of ring via the shoelace
// formula; positive indicates counter-clockwise winding.
func signedArea(ring []Position) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].Lon()*ring[i+1].Lat() - ring[i+1].Lon()*ring[i].Lat()
	}
	return sum
}

func ensureWinding(ring []Position, counterClockwise bool) []Position {
	area := signedArea(ring)
	isCCW := area > 0
	if isCCW == counterClockwise {
		return ring
	}
	reversed := make([]Position, len(ring))
	for i, p := range ring {
		reversed[len(ring)-1-i] = p
	}
	return reversed
}
