// Package dsp provides the pixel kernels used by motion compensation and
// block reconstruction: half-pel and eighth-pel interpolation in overwrite
// and average modes, edge emulation, the 8x8 inverse DCT and the
// dequantizers.
//
// Kernels are grouped into a Kernels value that the decoder selects once per
// frame and passes explicitly to the reconstruction code. Nothing in this
// package is mutated after package initialisation.
package dsp

// Block is one 8x8 transform block in raster order.
type Block = [64]int16

// HpelFunc predicts a w x h block at a half-pel phase fixed by the table
// slot it occupies. dst and src are addressed as (slice, offset of the
// top-left sample, stride). The source is read over (w+1) x (h+1) samples
// only when the phase needs the extra column or row.
type HpelFunc func(dst []byte, dstOff, dstStride int, src []byte, srcOff, srcStride, w, h int)

// HpelTable holds the four half-pel phases indexed by dxy, where bit 0 is
// the horizontal half and bit 1 the vertical half.
type HpelTable [4]HpelFunc

// BilinearFunc predicts a w x h block at an eighth-pel phase (x, y), both in
// [0, 8). It matches the chroma interpolation used by reduced-resolution
// decoding.
type BilinearFunc func(dst []byte, dstOff, dstStride int, src []byte, srcOff, srcStride, w, h, x, y int)

// Kernels is the interpolation capability injected into motion
// compensation. Put overwrites the destination, Avg averages the
// prediction into it with upward rounding.
type Kernels struct {
	Put, Avg                 HpelTable
	PutBilinear, AvgBilinear BilinearFunc

	// Finish is called at the end of every frame. Kernels that leave
	// processor state behind (vector units, counters) restore it here.
	Finish func()
}

var defaultKernels = Kernels{
	Put: HpelTable{putPixels, putPixelsX2, putPixelsY2, putPixelsXY2},
	Avg: HpelTable{avgPixels, avgPixelsX2, avgPixelsY2, avgPixelsXY2},

	PutBilinear: putBilinear,
	AvgBilinear: avgBilinear,
}

// Default returns the portable Go kernels.
func Default() *Kernels {
	k := defaultKernels
	return &k
}
