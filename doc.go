// Package mpv implements the picture management and reconstruction core of
// block based video decoders of the MPEG-1, MPEG-2, MPEG-4 part 2 and H.263
// families.
//
// A bitstream parser drives a Context: it fills Params, calls FrameStart,
// hands every decoded macroblock to ReconstructMacroblock and finishes with
// FrameEnd. The package manages the pool of frame buffers and their
// reference roles, synthesizes missing references, performs motion
// compensation for all partition modes (16x16, 8x8, 16x8, field and dual
// prime) with edge emulation, and adds the residual.
//
// The package supports:
//   - Frame and field pictures, interlaced DCT
//   - 4:2:0, 4:2:2 and 4:4:4 chroma
//   - Half and quarter sample vectors
//   - Reduced resolution decoding (Options.Lowres)
//   - Slice and frame level parallelism with per row progress
//
// Basic usage:
//
//	c, err := mpv.New(nil)
//	c.Params = params
//	err = c.FrameStart()
//	for _, mb := range macroblocks {
//		c.ReconstructMacroblock(mb)
//	}
//	c.FrameEnd()
//
// Frame level parallelism is available through Pipeline.
package mpv
