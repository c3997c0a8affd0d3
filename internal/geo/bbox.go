package geo

import "math"

// BBox returns the GeoJSON-conformant bounding box of geom: [west, south,
// east, north]. Geometries already split across the antimeridian (by
// FixAntimeridian) simply contribute each of their parts to the same
// overall min/max — RFC 7946 does not require bbox itself to be split,
// only the geometry.
func BBox(geom *Geometry) ([]float64, error) {
	polys, err := geom.Polygons()
	if err != nil {
		return nil, err
	}
	west, south := math.Inf(1), math.Inf(1)
	east, north := math.Inf(-1), math.Inf(-1)
	for _, rings := range polys {
		for _, ring := range rings {
			for _, p := range ring {
				if p.Lon() < west {
					west = p.Lon()
				}
				if p.Lon() > east {
					east = p.Lon()
				}
				if p.Lat() < south {
					south = p.Lat()
				}
				if p.Lat() > north {
					north = p.Lat()
				}
			}
		}
	}
	return []float64{west, south, east, north}, nil
}
