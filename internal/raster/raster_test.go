package raster

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSyntheticGeoTIFF assembles a minimal little-endian TIFF with a
// single IFD carrying ImageWidth, ImageLength, SamplesPerPixel,
// ModelPixelScaleTag, ModelTiepointTag, and GeoKeyDirectoryTag, with the
// three out-of-line value arrays placed after the IFD. It exists purely to
// exercise Open() against a real byte layout rather than a bare struct
// literal.
func buildSyntheticGeoTIFF(t *testing.T) []byte {
	t.Helper()
	bo := binary.LittleEndian

	const numEntries = 6
	ifdOffset := uint32(8)
	ifdSize := 2 + numEntries*12 + 4 // count + entries + next-IFD offset
	dataOffset := ifdOffset + uint32(ifdSize)

	pixelScale := []float64{30, 30, 0}
	tiePoints := []float64{0, 0, 0, 500000, 4500000, 0}
	geoKeys := []uint16{1, 1, 0, 1, 3072, 0, 1, 32633}

	pixelScaleOffset := dataOffset
	tiePointOffset := pixelScaleOffset + uint32(len(pixelScale)*8)
	geoKeysOffset := tiePointOffset + uint32(len(tiePoints)*8)

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, bo, uint16(42))
	binary.Write(&buf, bo, ifdOffset)
	require.Equal(t, int(ifdOffset), buf.Len())

	type entry struct {
		tag, fieldType uint16
		count          uint32
		value          uint32 // interpreted per field type; always written as 4 bytes little-endian
	}
	entries := []entry{
		{256, 3, 1, 100},  // ImageWidth SHORT
		{257, 3, 1, 50},   // ImageLength SHORT
		{277, 3, 1, 3},    // SamplesPerPixel SHORT
		{33550, 12, 3, pixelScaleOffset},
		{33922, 12, 6, tiePointOffset},
		{34735, 3, 8, geoKeysOffset},
	}
	binary.Write(&buf, bo, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, bo, e.tag)
		binary.Write(&buf, bo, e.fieldType)
		binary.Write(&buf, bo, e.count)
		binary.Write(&buf, bo, e.value)
	}
	binary.Write(&buf, bo, uint32(0)) // next IFD offset: none

	require.Equal(t, int(dataOffset), buf.Len())
	for _, v := range pixelScale {
		binary.Write(&buf, bo, math.Float64bits(v))
	}
	for _, v := range tiePoints {
		binary.Write(&buf, bo, math.Float64bits(v))
	}
	for _, v := range geoKeys {
		binary.Write(&buf, bo, v)
	}
	return buf.Bytes()
}

func TestOpenParsesGeoreferencedTIFF(t *testing.T) {
	data := buildSyntheticGeoTIFF(t)
	d, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, 100, d.Width())
	require.Equal(t, 50, d.Height())
	require.Equal(t, 3, d.BandCount())
	require.Equal(t, 32633, d.EPSG())

	west, south, east, north, ok := d.Bounds()
	require.True(t, ok)
	require.InDelta(t, 500000, west, 1e-6)
	require.InDelta(t, 4500000, north, 1e-6)
	require.InDelta(t, 500000+100*30, east, 1e-6)
	require.InDelta(t, 4500000-50*30, south, 1e-6)

	pi, err := ProjectionInfoOf(d)
	require.NoError(t, err)
	require.Equal(t, 32633, pi.EPSG)
	require.Equal(t, [2]int{50, 100}, pi.Shape)
}

func TestStatsFromSamples(t *testing.T) {
	nodata := -9999.0
	samples := []float64{1, 2, 3, 4, 5, nodata, nodata}
	stats := StatsFromSamples(samples, &nodata)
	require.InDelta(t, 3, stats.Mean, 1e-9)
	require.Equal(t, 1.0, stats.Min)
	require.Equal(t, 5.0, stats.Max)
	require.InDelta(t, float64(5)/7*100, stats.ValidPercent, 1e-9)
	require.Len(t, stats.Histogram, 10)
}

func TestEOBandsInfoOf(t *testing.T) {
	d := &Dataset{bandCount: 3, bandDescriptions: []string{"b1", "b2", "b3"}}
	info := EOBandsInfoOf(d)
	require.Len(t, info, 3)
	require.Equal(t, "b1", info[0].Name)
}

func TestProjectionInfoOfFallsBackWithoutCRS(t *testing.T) {
	d := &Dataset{width: 10, height: 20, bandCount: 1}
	pi, err := ProjectionInfoOf(d)
	require.NoError(t, err)
	require.Equal(t, [2]int{20, 10}, pi.Shape)
}

func TestGeometryInfoOfWorldFallback(t *testing.T) {
	d := &Dataset{width: 10, height: 10, bandCount: 1}
	gi, err := GeometryInfoOf(d, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []float64{-180, -90, 180, 90}, gi.BBox)
}
