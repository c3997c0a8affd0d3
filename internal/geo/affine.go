package geo

// Affine is a 3x3 affine transform matrix whose last row is always
// [0, 0, 1] and so is not stored; Values returns the 9-element row-major
// flattened form, bottom row included, that the template engine's
// `transform` field of projection_info uses.
type Affine struct {
	// A, B, C, D, E, F are the standard affine coefficients:
	// x' = A*x + B*y + C; y' = D*x + E*y + F.
	A, B, C, D, E, F float64
}

// Values returns the full row-major 3x3 matrix (9 elements) including the
// implicit [0, 0, 1] bottom row.
func (t Affine) Values() [9]float64 {
	return [9]float64{t.A, t.B, t.C, t.D, t.E, t.F, 0, 0, 1}
}

// AffineFromBounds builds the pixel-to-CRS affine transform for a raster
// whose bounds are (west, south, east, north) and whose raster grid is
// width x height pixels, north-up (row 0 at the north edge).
func AffineFromBounds(west, south, east, north float64, width, height int) Affine {
	xres := (east - west) / float64(width)
	yres := (south - north) / float64(height) // negative: rows increase southward
	return Affine{A: xres, B: 0, C: west, D: 0, E: yres, F: north}
}

// AffineFromOrigin builds the pixel-to-CRS affine transform given the
// raster's (west, north) origin and per-pixel (xsize, ysize) resolution.
func AffineFromOrigin(west, north, xsize, ysize float64) Affine {
	return Affine{A: xsize, B: 0, C: west, D: 0, E: -ysize, F: north}
}
