package geo

import (
	"fmt"
	"math"
)

// ellipsoid describes the reference ellipsoid used by a projected CRS.
type ellipsoid struct {
	a float64 // semi-major axis, meters
	f float64 // flattening
}

var wgs84 = ellipsoid{a: 6378137.0, f: 1 / 298.257223563}
var airy1830 = ellipsoid{a: 6377563.396, f: 1 / 299.3249646}

// projection is a forward/inverse transverse-Mercator-family projection
// between geographic (lon, lat in degrees) and projected (x, y in meters)
// coordinates.
type projection struct {
	ell                       ellipsoid
	lon0, lat0                float64 // radians
	k0                        float64
	falseEasting, falseNorth  float64
}

func utmZone(lon0Deg int, northern bool) projection {
	falseNorth := 0.0
	if !northern {
		falseNorth = 10000000.0
	}
	return projection{
		ell:          wgs84,
		lon0:         deg2rad(float64(lon0Deg)),
		lat0:         0,
		k0:           0.9996,
		falseEasting: 500000.0,
		falseNorth:   falseNorth,
	}
}

// projectionFor resolves an EPSG code to its projection definition. Only
// the codes named in the pipeline's round-trip CRS test are supported;
// 4326 (WGS84 geographic) is handled as an identity transform by the
// caller, not through this table.
func projectionFor(epsg int) (projection, error) {
	switch epsg {
	case 3857:
		return projection{ell: sphericalMercatorEllipsoid(), lon0: 0, k0: 1, falseEasting: 0, falseNorth: 0}, nil
	case 32633:
		return utmZone(15, true), nil // UTM zone 33N: central meridian 15E
	case 32618:
		return utmZone(-75, true), nil // UTM zone 18N: central meridian 75W
	case 27700:
		// British National Grid (approximated on the Airy 1830 ellipsoid,
		// ignoring the OSGB36 datum shift).
		return projection{
			ell:          airy1830,
			lon0:         deg2rad(-2),
			lat0:         deg2rad(49),
			k0:           0.9996012717,
			falseEasting: 400000.0,
			falseNorth:   -100000.0,
		}, nil
	default:
		return projection{}, fmt.Errorf("geo: unsupported EPSG code %d", epsg)
	}
}

func sphericalMercatorEllipsoid() ellipsoid { return ellipsoid{a: 6378137.0, f: 0} }

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// Transform reprojects geom from srcEPSG to dstEPSG. A code of 4326 denotes
// WGS84 geographic coordinates (degrees); any other supported code denotes
// a projected CRS in meters. The result is re-fixed for antimeridian
// crossing when the destination is geographic.
func Transform(geom *Geometry, srcEPSG, dstEPSG int, precision int) (*Geometry, error) {
	fwd, err := transformFunc(srcEPSG, dstEPSG)
	if err != nil {
		return nil, err
	}
	out, err := mapCoordinates(geom, fwd, precision)
	if err != nil {
		return nil, err
	}
	if dstEPSG == 4326 {
		return FixAntimeridian(out)
	}
	return out, nil
}

func transformFunc(srcEPSG, dstEPSG int) (func(x, y float64) (float64, float64), error) {
	toGeographic := func(epsg int) (func(x, y float64) (float64, float64), error) {
		if epsg == 4326 {
			return func(x, y float64) (float64, float64) { return x, y }, nil
		}
		p, err := projectionFor(epsg)
		if err != nil {
			return nil, err
		}
		return func(x, y float64) (float64, float64) {
			lon, lat := p.inverse(x, y)
			return rad2deg(lon), rad2deg(lat)
		}, nil
	}
	fromGeographic := func(epsg int) (func(lon, lat float64) (float64, float64), error) {
		if epsg == 4326 {
			return func(lon, lat float64) (float64, float64) { return lon, lat }, nil
		}
		p, err := projectionFor(epsg)
		if err != nil {
			return nil, err
		}
		return func(lon, lat float64) (float64, float64) {
			return p.forward(deg2rad(lon), deg2rad(lat))
		}, nil
	}
	toGeo, err := toGeographic(srcEPSG)
	if err != nil {
		return nil, err
	}
	fromGeo, err := fromGeographic(dstEPSG)
	if err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, float64) {
		lon, lat := toGeo(x, y)
		return fromGeo(lon, lat)
	}, nil
}

func mapCoordinates(geom *Geometry, f func(x, y float64) (float64, float64), precision int) (*Geometry, error) {
	polys, err := geom.Polygons()
	if err != nil {
		return nil, err
	}
	out := make([][][]Position, len(polys))
	for i, rings := range polys {
		outRings := make([][]Position, len(rings))
		for j, ring := range rings {
			outRing := make([]Position, len(ring))
			for k, p := range ring {
				x, y := f(p.Lon(), p.Lat())
				if precision >= 0 {
					x, y = round(x, precision), round(y, precision)
				}
				outRing[k] = Position{x, y}
			}
			outRings[j] = outRing
		}
		out[i] = outRings
	}
	if geom.Type == "Polygon" {
		return &Geometry{Type: "Polygon", Coordinates: out[0]}, nil
	}
	return &Geometry{Type: "MultiPolygon", Coordinates: out}, nil
}

// forward projects (lon, lat) in radians to (x, y) meters via the standard
// Snyder ellipsoidal transverse Mercator series (spherical Mercator when
// ell.f == 0).
func (p projection) forward(lon, lat float64) (float64, float64) {
	if p.ell.f == 0 {
		// Spherical (Web) Mercator.
		x := p.ell.a * (lon - p.lon0)
		y := p.ell.a * math.Log(math.Tan(math.Pi/4+lat/2))
		return x + p.falseEasting, y + p.falseNorth
	}
	a := p.ell.a
	f := p.ell.f
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	N := a / math.Sqrt(1-e2*sq(math.Sin(lat)))
	T := sq(math.Tan(lat))
	C := ep2 * sq(math.Cos(lat))
	A := (lon - p.lon0) * math.Cos(lat)
	M := meridionalArc(a, e2, lat)
	M0 := meridionalArc(a, e2, p.lat0)

	x := p.k0 * N * (A + (1-T+C)*cube(A)/6 + (5-18*T+sq(T)+72*C-58*ep2)*pow5(A)/120)
	y := p.k0 * (M - M0 + N*math.Tan(lat)*(sq(A)/2+(5-T+9*C+4*sq(C))*pow4(A)/24+(61-58*T+sq(T)+600*C-330*ep2)*pow6(A)/720))

	return x + p.falseEasting, y + p.falseNorth
}

// inverse is the corresponding Snyder inverse transform.
func (p projection) inverse(x, y float64) (float64, float64) {
	x -= p.falseEasting
	y -= p.falseNorth
	if p.ell.f == 0 {
		lon := x/p.ell.a + p.lon0
		lat := 2*math.Atan(math.Exp(y/p.ell.a)) - math.Pi/2
		return lon, lat
	}
	a := p.ell.a
	f := p.ell.f
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	M0 := meridionalArc(a, e2, p.lat0)
	M := M0 + y/p.k0
	mu := M / (a * (1 - e2/4 - 3*sq(e2)/64 - 5*cube(e2)/256))

	phi1 := mu + (3*e1/2-27*cube(e1)/32)*math.Sin(2*mu) +
		(21*sq(e1)/16-55*pow4(e1)/32)*math.Sin(4*mu) +
		(151*cube(e1)/96)*math.Sin(6*mu) +
		(1097*pow4(e1)/512)*math.Sin(8*mu)

	N1 := a / math.Sqrt(1-e2*sq(math.Sin(phi1)))
	T1 := sq(math.Tan(phi1))
	C1 := ep2 * sq(math.Cos(phi1))
	R1 := a * (1 - e2) / math.Pow(1-e2*sq(math.Sin(phi1)), 1.5)
	D := x / (N1 * p.k0)

	lat := phi1 - (N1*math.Tan(phi1)/R1)*(sq(D)/2-(5+3*T1+10*C1-4*sq(C1)-9*ep2)*pow4(D)/24+
		(61+90*T1+298*C1+45*sq(T1)-252*ep2-3*sq(C1))*pow6(D)/720)
	lon := p.lon0 + (D-(1+2*T1+C1)*cube(D)/6+
		(5-2*C1+28*T1-3*sq(C1)+8*ep2+24*sq(T1))*pow5(D)/120)/math.Cos(phi1)

	return lon, lat
}

func meridionalArc(a, e2, lat float64) float64 {
	return a * ((1-e2/4-3*sq(e2)/64-5*cube(e2)/256)*lat -
		(3*e2/8+3*sq(e2)/32+45*cube(e2)/1024)*math.Sin(2*lat) +
		(15*sq(e2)/256+45*cube(e2)/1024)*math.Sin(4*lat) -
		(35*cube(e2)/3072)*math.Sin(6*lat))
}

func sq(v float64) float64   { return v * v }
func cube(v float64) float64 { return v * v * v }
func pow4(v float64) float64 { return v * v * v * v }
func pow5(v float64) float64 { return v * v * v * v * v }
func pow6(v float64) float64 { return v * v * v * v * v * v }
