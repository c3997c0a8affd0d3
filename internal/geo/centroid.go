package geo

// Centroid computes the antimeridian-aware area-weighted centroid of geom's
// exterior ring(s). Longitudes are unwrapped across each ring before
// averaging and the result is re-wrapped into [-180, 180], so a polygon
// straddling 180°E does not average to a point on the wrong side of the
// world.
func Centroid(geom *Geometry) (Position, error) {
	polys, err := geom.Polygons()
	if err != nil {
		return nil, err
	}
	var cx, cy, totalArea float64
	for _, rings := range polys {
		if len(rings) == 0 {
			continue
		}
		ring := unwrapRing(rings[0])
		for i := 0; i < len(ring)-1; i++ {
			a := ring[i]
			b := ring[i+1]
			cross := a.Lon()*b.Lat() - b.Lon()*a.Lat()
			cx += (a.Lon() + b.Lon()) * cross
			cy += (a.Lat() + b.Lat()) * cross
			totalArea += cross
		}
	}
	if totalArea == 0 {
		return nil, errFlatGeometry
	}
	totalArea /= 2
	cx /= 6 * totalArea
	cy /= 6 * totalArea
	return Position{wrapLon(cx), cy}, nil
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

var errFlatGeometry = &geoError{"geo: cannot compute centroid of a degenerate (zero-area) polygon"}

type geoError struct{ msg string }

func (e *geoError) Error() string { return e.msg }
