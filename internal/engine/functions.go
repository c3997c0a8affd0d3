package engine

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"strings"
	"time"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/geo"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/raster"
)

func (e *Environment) registerFunctions() {
	e.funcs["now"] = nowFunc
	e.funcs["affine_transform_from_bounds"] = affineFromBoundsFunc
	e.funcs["affine_transform_from_origin"] = affineFromOriginFunc
	e.funcs["get_text"] = e.getTextFunc
	e.funcs["get_xml"] = e.getXMLFunc
	e.funcs["get_json"] = e.getJSONFunc
	e.funcs["get_rasterio_dataset"] = e.getRasterioDatasetFunc
	e.funcs["get_raster_file_info"] = e.getRasterFileInfoFunc
}

// nowFunc returns the current UTC time, ISO-8601 with a trailing Z.
// Excluded from the template-idempotence invariant by design (see the
// testable-properties note that idempotence tests must not call now()).
func nowFunc() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

func affineFromBoundsFunc(w, s, eE, n float64, width, height int) [9]float64 {
	return geo.AffineFromBounds(w, s, eE, n, width, height).Values()
}

func affineFromOriginFunc(w, n, xsize, ysize float64) [9]float64 {
	return geo.AffineFromOrigin(w, n, xsize, ysize).Values()
}

func (e *Environment) getTextFunc(url string) (string, error) {
	return e.fetcher.FetchText(context.Background(), url)
}

func (e *Environment) getJSONFunc(url string) (interface{}, error) {
	text, err := e.fetcher.FetchText(context.Background(), url)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// xmlNode is a generic nested mapping produced from an XML document, since
// encoding/xml has no built-in "decode to map" mode the way encoding/json
// does.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n xmlNode) toMap() map[string]interface{} {
	m := map[string]interface{}{}
	for _, a := range n.Attrs {
		m["@"+a.Name.Local] = a.Value
	}
	if text := strings.TrimSpace(n.Content); text != "" && len(n.Children) == 0 {
		m["#text"] = text
	}
	for _, c := range n.Children {
		m[c.XMLName.Local] = c.toMap()
	}
	return m
}

func (e *Environment) getXMLFunc(url string) (map[string]interface{}, error) {
	text, err := e.fetcher.FetchText(context.Background(), url)
	if err != nil {
		return nil, err
	}
	var root xmlNode
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		return nil, err
	}
	return map[string]interface{}{root.XMLName.Local: root.toMap()}, nil
}

func (e *Environment) getRasterioDatasetFunc(url string) (*raster.Dataset, error) {
	reader, closer, err := e.openVSI(url)
	if err != nil {
		return nil, err
	}
	return raster.Open(reader, closer)
}

func (e *Environment) getRasterFileInfoFunc(url string) (map[string]interface{}, error) {
	d, err := e.getRasterioDatasetFunc(url)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	proj, err := raster.ProjectionInfoOf(d)
	if err != nil {
		return nil, err
	}
	geomInfo, err := raster.GeometryInfoOf(d, 0, -1)
	if err != nil {
		return nil, err
	}
	rasterInfo, err := rasterInfoFilter(d, 1024)
	if err != nil {
		return nil, err
	}
	bands := raster.EOBandsInfoOf(d)
	return map[string]interface{}{
		"projection": proj,
		"geometry":   geomInfo,
		"raster":     rasterInfo,
		"eo_bands":   bands,
	}, nil
}
