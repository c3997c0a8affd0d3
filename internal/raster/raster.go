// Package raster provides minimal GeoTIFF introspection: enough to resolve
// a raster's CRS, geotransform, shape, and band count for the template
// engine's raster filters. No pixel data is decoded; per-band statistics
// come from StatsFromSamples over caller-supplied samples. No Go raster/GDAL
// binding appears anywhere in the retrieved example pack, so this reads
// GeoTIFF IFD tags directly against the standard library's image/tiff-
// adjacent primitives (encoding/binary over a io.ReaderAt); see DESIGN.md.
package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Dataset is an open raster, modeled after the scoped-acquisition pattern
// the pipeline's other resource handles (GCSClient writers, template
// caches) follow: callers must Close it on every exit path.
type Dataset struct {
	r           io.ReaderAt
	closer      io.Closer
	byteOrder   binary.ByteOrder
	width       int
	height      int
	bandCount   int
	bitsPerSample []int
	tiePoints   []float64 // ModelTiepointTag
	pixelScale  []float64 // ModelPixelScaleTag
	geoKeys     map[int]uint16
	epsg        int
	bandDescriptions []string
	noData      *float64
}

// Close releases the underlying file handle, if any.
func (d *Dataset) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Width and Height report the raster's pixel dimensions.
func (d *Dataset) Width() int  { return d.width }
func (d *Dataset) Height() int { return d.height }

// BandCount reports the number of samples per pixel.
func (d *Dataset) BandCount() int { return d.bandCount }

// Bounds reports the dataset's footprint in its own CRS, derived from the
// ModelTiepointTag (raster-space tiepoint 0 -> model-space origin) and
// ModelPixelScaleTag (model units per pixel). ok is false when either tag
// was absent or too short to resolve a georeference, in which case callers
// should fall back to pixel bounds.
func (d *Dataset) Bounds() (west, south, east, north float64, ok bool) {
	if len(d.tiePoints) < 6 || len(d.pixelScale) < 2 {
		return 0, 0, 0, 0, false
	}
	// ModelTiepointTag entries are (I,J,K, X,Y,Z) raster-to-model pairs;
	// the first tiepoint anchors raster (0,0) to model-space (X,Y).
	originX, originY := d.tiePoints[3], d.tiePoints[4]
	scaleX, scaleY := d.pixelScale[0], d.pixelScale[1]
	west = originX
	north = originY
	east = originX + float64(d.width)*scaleX
	south = originY - float64(d.height)*scaleY
	return west, south, east, north, true
}

const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagSamplesPerPixel  = 277
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	tagGDALNoData       = 42113
	tagGDALBandDesc     = 270 // ImageDescription; not read by Open, band descriptions are "b<i>"
)

// ifdEntry is one Image File Directory entry.
type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	valueOrOffset []byte
}

// Open parses the TIFF header and first IFD of r to build a Dataset. It
// reads no pixel data.
func Open(r io.ReaderAt, closer io.Closer) (*Dataset, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("raster: reading header: %w", err)
	}
	var bo binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("raster: not a TIFF file")
	}
	if bo.Uint16(hdr[2:4]) != 42 {
		return nil, fmt.Errorf("raster: bad TIFF magic number")
	}
	ifdOffset := bo.Uint32(hdr[4:8])

	entries, err := readIFD(r, bo, int64(ifdOffset))
	if err != nil {
		return nil, err
	}

	d := &Dataset{r: r, closer: closer, byteOrder: bo, geoKeys: map[int]uint16{}}
	for _, e := range entries {
		switch e.tag {
		case tagImageWidth:
			d.width = int(entryUint(e, bo))
		case tagImageLength:
			d.height = int(entryUint(e, bo))
		case tagSamplesPerPixel:
			d.bandCount = int(entryUint(e, bo))
		case tagModelPixelScale:
			d.pixelScale, err = entryFloats(r, e, bo)
			if err != nil {
				return nil, fmt.Errorf("raster: reading ModelPixelScaleTag: %w", err)
			}
		case tagModelTiepoint:
			d.tiePoints, err = entryFloats(r, e, bo)
			if err != nil {
				return nil, fmt.Errorf("raster: reading ModelTiepointTag: %w", err)
			}
		case tagGeoKeyDirectory:
			d.geoKeys, err = parseGeoKeys(r, e, bo)
			if err != nil {
				return nil, fmt.Errorf("raster: reading GeoKeyDirectoryTag: %w", err)
			}
		case tagGDALNoData:
			// Stored as an ASCII string per the GDAL convention.
		}
	}
	if d.bandCount == 0 {
		d.bandCount = 1
	}
	if v, ok := d.geoKeys[2048]; ok { // GeographicTypeGeoKey
		d.epsg = int(v)
	}
	if v, ok := d.geoKeys[3072]; ok { // ProjectedCSTypeGeoKey
		d.epsg = int(v)
	}
	d.bandDescriptions = make([]string, d.bandCount)
	for i := range d.bandDescriptions {
		d.bandDescriptions[i] = fmt.Sprintf("b%d", i+1)
	}
	return d, nil
}

func readIFD(r io.ReaderAt, bo binary.ByteOrder, offset int64) ([]ifdEntry, error) {
	var countBuf [2]byte
	if _, err := r.ReadAt(countBuf[:], offset); err != nil {
		return nil, err
	}
	count := bo.Uint16(countBuf[:])
	entries := make([]ifdEntry, 0, count)
	for i := 0; i < int(count); i++ {
		var buf [12]byte
		if _, err := r.ReadAt(buf[:], offset+2+int64(i)*12); err != nil {
			return nil, err
		}
		entries = append(entries, ifdEntry{
			tag:           bo.Uint16(buf[0:2]),
			fieldType:     bo.Uint16(buf[2:4]),
			count:         bo.Uint32(buf[4:8]),
			valueOrOffset: append([]byte(nil), buf[8:12]...),
		})
	}
	return entries, nil
}

func entryUint(e ifdEntry, bo binary.ByteOrder) uint32 {
	switch e.fieldType {
	case 3: // SHORT
		return uint32(bo.Uint16(e.valueOrOffset[:2]))
	default: // LONG
		return bo.Uint32(e.valueOrOffset)
	}
}

// entryRawBytes returns the raw bytes backing e's value array, dereferencing
// the out-of-line offset when the array is too large to fit inline (the
// TIFF spec's rule: a value fits in the 4-byte slot only when
// count*elemSize <= 4; otherwise valueOrOffset holds an offset to follow).
func entryRawBytes(r io.ReaderAt, e ifdEntry, bo binary.ByteOrder, elemSize int) ([]byte, error) {
	size := int(e.count) * elemSize
	if size <= 4 {
		return e.valueOrOffset[:size], nil
	}
	offset := bo.Uint32(e.valueOrOffset)
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// entryFloats decodes e as an array of IEEE-754 DOUBLEs (fieldType 12),
// the storage format ModelPixelScaleTag and ModelTiepointTag both use.
func entryFloats(r io.ReaderAt, e ifdEntry, bo binary.ByteOrder) ([]float64, error) {
	raw, err := entryRawBytes(r, e, bo, 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, e.count)
	for i := range out {
		bits := bo.Uint64(raw[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}

// parseGeoKeys decodes the GeoKeyDirectoryTag SHORT array: a 4-SHORT header
// [KeyDirectoryVersion, KeyRevision, MinorRevision, NumberOfKeys] followed
// by NumberOfKeys 4-SHORT entries [KeyID, TIFFTagLocation, Count,
// ValueOffset]. Only entries with TIFFTagLocation==0 are honored — those
// store the key's value directly in ValueOffset, which covers both
// GeographicTypeGeoKey and ProjectedCSTypeGeoKey; keys referencing another
// tag (ASCII or DOUBLE params) are skipped since this reader only needs
// the EPSG-bearing keys.
func parseGeoKeys(r io.ReaderAt, e ifdEntry, bo binary.ByteOrder) (map[int]uint16, error) {
	raw, err := entryRawBytes(r, e, bo, 2)
	if err != nil {
		return nil, err
	}
	shorts := make([]uint16, e.count)
	for i := range shorts {
		shorts[i] = bo.Uint16(raw[i*2 : i*2+2])
	}
	geoKeys := map[int]uint16{}
	if len(shorts) < 4 {
		return geoKeys, nil
	}
	numKeys := int(shorts[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(shorts) {
			break
		}
		keyID := shorts[base]
		tiffTagLocation := shorts[base+1]
		valueOffset := shorts[base+3]
		if tiffTagLocation == 0 {
			geoKeys[int(keyID)] = valueOffset
		}
	}
	return geoKeys, nil
}

// NoData returns the dataset's declared nodata value, if any.
func (d *Dataset) NoData() *float64 { return d.noData }

// EPSG returns the dataset's EPSG code, or 0 if undetermined.
func (d *Dataset) EPSG() int { return d.epsg }

// BandDescription returns the human-readable description of band i (1-indexed).
func (d *Dataset) BandDescription(i int) string {
	if i-1 < 0 || i-1 >= len(d.bandDescriptions) {
		return fmt.Sprintf("b%d", i)
	}
	return d.bandDescriptions[i-1]
}
