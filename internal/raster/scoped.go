package raster

// WithDataset invokes fn with the already-open Dataset d and always
// closes d afterward — the scoped-acquisition pattern
// get_rasterio_dataset's VSI handle needs per the design notes, mirrored
// here after gcs.WithWriteFile.
func WithDataset(d *Dataset, fn func(*Dataset) error) error {
	defer d.Close()
	return fn(d)
}
