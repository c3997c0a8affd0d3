package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShapeFromFootprintAndBBox(t *testing.T) {
	// A simple square footprint given as flat [lat, lon, ...] pairs.
	footprint := []float64{0, 0, 0, 1, 1, 1, 1, 0}
	g, err := ShapeFromFootprint(footprint, 6)
	require.NoError(t, err)
	require.Equal(t, "Polygon", g.Type)

	bbox, err := BBox(g)
	require.NoError(t, err)
	require.Len(t, bbox, 4)
	require.InDelta(t, 0, bbox[0], 1e-9)
	require.InDelta(t, 0, bbox[1], 1e-9)
	require.InDelta(t, 1, bbox[2], 1e-9)
	require.InDelta(t, 1, bbox[3], 1e-9)
}

func TestFixAntimeridianSplitsCrossingPolygon(t *testing.T) {
	// A footprint straddling the antimeridian: lon values 179 and -179 are
	// really 1 degree apart going the short way around.
	footprint := []float64{0, 179, 0, -179, 1, -179, 1, 179}
	g, err := ShapeFromFootprint(footprint, 6)
	require.NoError(t, err)
	require.Equal(t, "MultiPolygon", g.Type)

	bbox, err := BBox(g)
	require.NoError(t, err)
	require.Len(t, bbox, 4)
}

// TestTransformRoundTrip exercises Testable Property 4's full CRS set;
// each EPSG gets a footprint near its own central meridian so the
// transverse-Mercator series stays within its region of validity.
func TestTransformRoundTrip(t *testing.T) {
	square := func(lon, lat float64) *Geometry {
		return &Geometry{Type: "Polygon", Coordinates: [][]Position{{
			{lon, lat}, {lon + 0.01, lat}, {lon + 0.01, lat + 0.01}, {lon, lat + 0.01}, {lon, lat},
		}}}
	}
	cases := []struct {
		epsg     int
		geometry *Geometry
	}{
		{3857, square(10, 50)},
		{32633, square(15, 50)},   // UTM zone 33N, central meridian 15E
		{32618, square(-75, 40)},  // UTM zone 18N, central meridian 75W
		{27700, square(-2, 52)},   // British National Grid, near its origin
	}
	for _, c := range cases {
		projected, err := Transform(c.geometry, 4326, c.epsg, -1)
		require.NoError(t, err)
		back, err := Transform(projected, c.epsg, 4326, -1)
		require.NoError(t, err)
		origRing := c.geometry.Coordinates.([][]Position)[0]
		backRing := back.Coordinates.([][]Position)[0]
		for i := range origRing {
			require.InDelta(t, origRing[i].Lon(), backRing[i].Lon(), 1e-6, "epsg %d lon", c.epsg)
			require.InDelta(t, origRing[i].Lat(), backRing[i].Lat(), 1e-6, "epsg %d lat", c.epsg)
		}
	}
}

func TestSimplify(t *testing.T) {
	ring := []Position{{0, 0}, {0.5, 0.0001}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	g := &Geometry{Type: "Polygon", Coordinates: [][]Position{ring}}
	out, err := Simplify(g, 0.01, true)
	require.NoError(t, err)
	simplifiedRing := out.Coordinates.([][]Position)[0]
	require.Less(t, len(simplifiedRing), len(ring))
}

func TestAffineFromBounds(t *testing.T) {
	a := AffineFromBounds(0, 0, 10, 10, 100, 100)
	require.InDelta(t, 0.1, a.A, 1e-9)
	require.InDelta(t, -0.1, a.E, 1e-9)
	vals := a.Values()
	require.Equal(t, 9, len(vals))
}

func TestCentroid(t *testing.T) {
	g := &Geometry{Type: "Polygon", Coordinates: [][]Position{{
		{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0},
	}}}
	c, err := Centroid(g)
	require.NoError(t, err)
	require.True(t, math.Abs(c.Lon()-1) < 1e-9)
	require.True(t, math.Abs(c.Lat()-1) < 1e-9)
}
