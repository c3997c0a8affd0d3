package engine

import (
	"encoding/json"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/geo"
)

func (e *Environment) registerGeo() {
	e.funcs["shape_from_footprint"] = shapeFromFootprintFilter
	e.funcs["bbox"] = bboxFilter
	e.funcs["centroid"] = centroidFilter
	e.funcs["simplify"] = simplifyFilter
	e.funcs["transform"] = transformFilter
	e.funcs["tojson"] = tojsonFilter
}

func shapeFromFootprintFilter(coords []float64, rounding int) (*geo.Geometry, error) {
	return geo.ShapeFromFootprint(coords, rounding)
}

func bboxFilter(g *geo.Geometry) ([]float64, error) {
	return geo.BBox(g)
}

func centroidFilter(g *geo.Geometry) (geo.Position, error) {
	return geo.Centroid(g)
}

func simplifyFilter(g *geo.Geometry, tolerance float64, preserveTopology bool) (*geo.Geometry, error) {
	return geo.Simplify(g, tolerance, preserveTopology)
}

func transformFilter(g *geo.Geometry, srcCRS, dstCRS int, precision int) (*geo.Geometry, error) {
	return geo.Transform(g, srcCRS, dstCRS, precision)
}

// tojsonFilter serializes obj, special-casing geometries so that the
// output is their GeoJSON mapping rather than their internal struct shape.
func tojsonFilter(obj interface{}) (string, error) {
	if g, ok := obj.(*geo.Geometry); ok {
		obj = map[string]interface{}{"type": g.Type, "coordinates": g.Coordinates}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
