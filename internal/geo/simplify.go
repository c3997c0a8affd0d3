package geo

import "math"

// Simplify applies the Ramer-Douglas-Peucker algorithm to every ring of
// geom with the given tolerance (in the geometry's own coordinate units).
// preserveTopology, when true, refuses to simplify a ring below 4 points
// (3 distinct vertices plus closure), which is sufficient to keep a
// polygon non-degenerate; it does not guard against self-intersection
// introduced by simplifying adjacent rings independently.
func Simplify(geom *Geometry, tolerance float64, preserveTopology bool) (*Geometry, error) {
	polys, err := geom.Polygons()
	if err != nil {
		return nil, err
	}
	out := make([][][]Position, len(polys))
	for i, rings := range polys {
		simplifiedRings := make([][]Position, len(rings))
		for j, ring := range rings {
			s := douglasPeucker(ring, tolerance)
			if preserveTopology && len(s) < 4 {
				s = ring
			}
			simplifiedRings[j] = s
		}
		out[i] = simplifiedRings
	}
	if geom.Type == "Polygon" {
		return &Geometry{Type: "Polygon", Coordinates: out[0]}, nil
	}
	return &Geometry{Type: "MultiPolygon", Coordinates: out}, nil
}

func douglasPeucker(points []Position, tolerance float64) []Position {
	if len(points) < 3 {
		return points
	}
	dmax := 0.0
	index := 0
	end := len(points) - 1
	for i := 1; i < end; i++ {
		d := perpendicularDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}
	if dmax > tolerance {
		left := douglasPeucker(points[:index+1], tolerance)
		right := douglasPeucker(points[index:], tolerance)
		return append(left[:len(left)-1], right...)
	}
	return []Position{points[0], points[end]}
}

func perpendicularDistance(p, a, b Position) float64 {
	dx := b.Lon() - a.Lon()
	dy := b.Lat() - a.Lat()
	if dx == 0 && dy == 0 {
		return math.Hypot(p.Lon()-a.Lon(), p.Lat()-a.Lat())
	}
	num := math.Abs(dy*p.Lon() - dx*p.Lat() + b.Lon()*a.Lat() - b.Lat()*a.Lon())
	den := math.Hypot(dx, dy)
	return num / den
}
