package engine

import "github.com/Azure/microsoft-planetary-computer-pro/internal/raster"

func (e *Environment) registerRaster() {
	e.funcs["projection_info"] = raster.ProjectionInfoOf
	e.funcs["geometry_info"] = func(d *raster.Dataset, densifyPts, precision int) (*raster.GeometryInfo, error) {
		return raster.GeometryInfoOf(d, densifyPts, precision)
	}
	e.funcs["raster_info"] = rasterInfoFilter
	e.funcs["eo_bands_info"] = func(d *raster.Dataset) []raster.EOBandInfo {
		return raster.EOBandsInfoOf(d)
	}
}

// rasterInfoFilter returns one BandStats entry per band of d. The minimal
// GeoTIFF reader decodes no pixel data (see DESIGN.md), so every entry is
// raster.StatsFromSamples over an empty sample set with d's nodata value;
// no pixels are read and maxSize is not used.
func rasterInfoFilter(d *raster.Dataset, maxSize int) (*raster.RasterInfo, error) {
	bands := make([]raster.BandStats, d.BandCount())
	for i := range bands {
		bands[i] = raster.StatsFromSamples(nil, d.NoData())
	}
	return &raster.RasterInfo{Bands: bands}, nil
}
