package raster

import (
	"math"
	"strconv"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/geo"
)

// ProjectionInfo mirrors the `projection_info` template filter's contract.
type ProjectionInfo struct {
	EPSG      int                    `json:"epsg,omitempty"`
	Geometry  map[string]interface{} `json:"geometry"`
	BBox      []float64              `json:"bbox"`
	Shape     [2]int                 `json:"shape"`
	Transform [9]float64             `json:"transform"`
}

// ProjectionInfoOf builds the footprint-and-geotransform summary of d.
// When the dataset carries no ModelTiepointTag/ModelPixelScaleTag (e.g. a
// plain, non-georeferenced TIFF), the footprint degenerates to the
// dataset's pixel bounds, matching the filter's fallback behavior for
// CRS-less rasters.
func ProjectionInfoOf(d *Dataset) (*ProjectionInfo, error) {
	west, south, east, north := 0.0, 0.0, float64(d.Width()), float64(d.Height())
	if bw, bs, be, bn, ok := d.Bounds(); ok {
		west, south, east, north = bw, bs, be, bn
	}
	transform := geo.AffineFromBounds(west, south, east, north, d.Width(), d.Height())
	ring := [][]geo.Position{{
		{west, south}, {east, south}, {east, north}, {west, north}, {west, south},
	}}
	g := &geo.Geometry{Type: "Polygon", Coordinates: ring}
	bbox, err := geo.BBox(g)
	if err != nil {
		return nil, err
	}
	return &ProjectionInfo{
		EPSG:      d.EPSG(),
		Geometry:  map[string]interface{}{"type": g.Type, "coordinates": g.Coordinates},
		BBox:      bbox,
		Shape:     [2]int{d.Height(), d.Width()},
		Transform: transform.Values(),
	}, nil
}

// GeometryInfo mirrors the `geometry_info` filter: the dataset's footprint
// reprojected to EPSG:4326.
type GeometryInfo struct {
	Geometry map[string]interface{} `json:"geometry"`
	BBox     []float64              `json:"bbox"`
}

// GeometryInfoOf reprojects d's pixel-bounds polygon into EPSG:4326. If the
// dataset declares no CRS, the world bbox is returned, matching the
// filter's documented fallback.
func GeometryInfoOf(d *Dataset, densifyPts, precision int) (*GeometryInfo, error) {
	if d.EPSG() == 0 {
		return &GeometryInfo{
			Geometry: map[string]interface{}{"type": "Polygon", "coordinates": worldRing()},
			BBox:     []float64{-180, -90, 180, 90},
		}, nil
	}
	west, south, east, north := 0.0, 0.0, float64(d.Width()), float64(d.Height())
	if bw, bs, be, bn, ok := d.Bounds(); ok {
		west, south, east, north = bw, bs, be, bn
	}
	ring := [][]geo.Position{{
		{west, south}, {east, south}, {east, north}, {west, north}, {west, south},
	}}
	g := &geo.Geometry{Type: "Polygon", Coordinates: ring}
	if densifyPts > 0 {
		g = densify(g, densifyPts)
	}
	reprojected, err := geo.Transform(g, d.EPSG(), 4326, precision)
	if err != nil {
		return nil, err
	}
	bbox, err := geo.BBox(reprojected)
	if err != nil {
		return nil, err
	}
	return &GeometryInfo{
		Geometry: map[string]interface{}{"type": reprojected.Type, "coordinates": reprojected.Coordinates},
		BBox:     bbox,
	}, nil
}

func worldRing() [][]geo.Position {
	return [][]geo.Position{{
		{-180, -90}, {180, -90}, {180, 90}, {-180, 90}, {-180, -90},
	}}
}

func densify(g *geo.Geometry, pts int) *geo.Geometry {
	// Evenly insert additional vertices along each ring edge so that
	// downstream reprojection better approximates a curved boundary.
	rings, err := g.Ring()
	if err != nil {
		return g
	}
	out := make([][]geo.Position, len(rings))
	for i, ring := range rings {
		var dense []geo.Position
		for j := 0; j < len(ring)-1; j++ {
			a, b := ring[j], ring[j+1]
			dense = append(dense, a)
			for k := 1; k <= pts; k++ {
				t := float64(k) / float64(pts+1)
				dense = append(dense, geo.Position{
					a.Lon() + t*(b.Lon()-a.Lon()),
					a.Lat() + t*(b.Lat()-a.Lat()),
				})
			}
		}
		dense = append(dense, ring[len(ring)-1])
		out[i] = dense
	}
	return &geo.Geometry{Type: "Polygon", Coordinates: out}
}

// BandStats is the per-band statistics block in RasterInfo.
type BandStats struct {
	Mean         float64   `json:"mean"`
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	StdDev       float64   `json:"std"`
	ValidPercent float64   `json:"valid_percent"`
	Histogram    []int     `json:"histogram"`
	NoData       *float64  `json:"nodata,omitempty"`
}

// RasterInfo mirrors the `raster_info` filter.
type RasterInfo struct {
	Bands []BandStats `json:"bands"`
}

// StatsFromSamples computes mean/min/max/stddev/valid_percent and a
// 10-bucket histogram over samples, treating values equal to nodata (when
// non-nil) as invalid. This is exposed directly (rather than only via an
// opened Dataset) so activities and tests can exercise the statistics
// logic against synthetic sample sets without needing a real raster file.
func StatsFromSamples(samples []float64, nodata *float64) BandStats {
	var sum, sumSq, min, max float64
	min, max = math.Inf(1), math.Inf(-1)
	valid := 0
	for _, v := range samples {
		if nodata != nil && v == *nodata {
			continue
		}
		valid++
		sum += v
		sumSq += v * v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	stats := BandStats{NoData: nodata}
	if valid == 0 {
		return stats
	}
	mean := sum / float64(valid)
	variance := sumSq/float64(valid) - mean*mean
	if variance < 0 {
		variance = 0
	}
	stats.Mean = mean
	stats.Min = min
	stats.Max = max
	stats.StdDev = math.Sqrt(variance)
	stats.ValidPercent = 100 * float64(valid) / float64(len(samples))
	stats.Histogram = histogram(samples, nodata, min, max, 10)
	return stats
}

func histogram(samples []float64, nodata *float64, min, max float64, buckets int) []int {
	h := make([]int, buckets)
	if max <= min {
		return h
	}
	width := (max - min) / float64(buckets)
	for _, v := range samples {
		if nodata != nil && v == *nodata {
			continue
		}
		idx := int((v - min) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		h[idx]++
	}
	return h
}

// EOBandInfo mirrors one entry of the `eo_bands_info` filter.
type EOBandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EOBandsInfoOf returns a {name, description} entry per band in d.
func EOBandsInfoOf(d *Dataset) []EOBandInfo {
	out := make([]EOBandInfo, d.BandCount())
	for i := 0; i < d.BandCount(); i++ {
		out[i] = EOBandInfo{Name: bandName(i + 1), Description: d.BandDescription(i + 1)}
	}
	return out
}

func bandName(i int) string {
	return "b" + strconv.Itoa(i)
}
