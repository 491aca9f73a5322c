package mpv

import (
	"github.com/deepteams/mpv/internal/dsp"
	"github.com/deepteams/mpv/internal/picture"
)

// Codec identifies the bitstream family being reconstructed.
type Codec int

const (
	CodecMPEG1 Codec = iota
	CodecMPEG2
	CodecMPEG4
	CodecH263
	CodecH261
	CodecFLV1
	CodecMSMPEG4
)

func (c Codec) String() string {
	switch c {
	case CodecMPEG1:
		return "mpeg1"
	case CodecMPEG2:
		return "mpeg2"
	case CodecMPEG4:
		return "mpeg4"
	case CodecH263:
		return "h263"
	case CodecH261:
		return "h261"
	case CodecFLV1:
		return "flv1"
	case CodecMSMPEG4:
		return "msmpeg4"
	}
	return "unknown"
}

// outFormat groups codecs that share chroma vector and dequantization rules.
type outFormat int

const (
	fmtMPEG1 outFormat = iota
	fmtH263
	fmtH261
)

func (c Codec) outFormat() outFormat {
	switch c {
	case CodecMPEG1, CodecMPEG2:
		return fmtMPEG1
	case CodecH261:
		return fmtH261
	}
	return fmtH263
}

// ChromaFormat is the chroma subsampling of the stream.
type ChromaFormat int

const (
	Chroma420 ChromaFormat = iota
	Chroma422
	Chroma444
)

// shifts returns the horizontal and vertical chroma shifts.
func (f ChromaFormat) shifts() (x, y int, ok bool) {
	switch f {
	case Chroma420:
		return 1, 1, true
	case Chroma422:
		return 1, 0, true
	case Chroma444:
		return 0, 0, true
	}
	return 0, 0, false
}

// PictureType is the coding type of a picture.
type PictureType = picture.Type

const (
	TypeI = picture.TypeI
	TypeP = picture.TypeP
	TypeB = picture.TypeB
	TypeS = picture.TypeS
)

// Picture structure.
const (
	TopField     = picture.TopField
	BottomField  = picture.BottomField
	FramePicture = picture.Frame
)

// Workaround flags for encoder bugs.
const (
	// BugHpelChroma derives H.263-style field chroma vectors from the
	// halved luma vector as some old encoders did.
	BugHpelChroma uint32 = 1 << iota
)

// Vector is a motion vector in half samples, or quarter samples when the
// stream uses quarter-sample precision.
type Vector struct {
	X, Y int
}

// Partition is the motion vector payload of one prediction direction of a
// macroblock. The concrete type selects how the macroblock is split.
type Partition interface {
	partition()
}

// Single predicts the whole 16x16 macroblock from one vector.
type Single struct {
	MV Vector
}

// Quad predicts each 8x8 luma block from its own vector. Chroma uses one
// vector derived from their sum.
type Quad struct {
	MV [4]Vector
}

// HalfField predicts the upper and lower 16x8 halves of a field
// macroblock, each from the reference field chosen by FieldSelect
// (0 top, 1 bottom).
type HalfField struct {
	MV          [2]Vector
	FieldSelect [2]int
}

// Field predicts the two fields of a frame macroblock separately. In field
// pictures only MV[0] and FieldSelect[0] are used.
type Field struct {
	MV          [2]Vector
	FieldSelect [2]int
}

// DualPrime averages same and opposite parity predictions. For frame
// pictures MV is indexed by 2*i+j for prediction i of field j; field
// pictures use MV[0] and MV[2].
type DualPrime struct {
	MV [4]Vector
}

func (Single) partition()    {}
func (Quad) partition()      {}
func (HalfField) partition() {}
func (Field) partition()     {}
func (DualPrime) partition() {}

// Macroblock type flags stored in the picture side tables.
const (
	MBIntra uint32 = 1 << iota
	MBForward
	MBBackward
	MBQuad
	MBInterlaced
	MBSkip
)

// Macroblock is everything the reconstructor needs for one macroblock.
type Macroblock struct {
	// X and Y are the macroblock column and row in the picture being
	// decoded. For field pictures Y counts rows of the field.
	X, Y int

	Intra bool

	// Forward and Backward are the predictions from the last and next
	// reference. A nil partition means the direction is unused.
	Forward, Backward Partition

	QScale int

	// InterlacedDCT selects field-ordered luma (and 4:2:2/4:4:4 chroma)
	// transform blocks.
	InterlacedDCT bool

	// Skip marks a macroblock the bitstream did not code. It only affects
	// the side tables.
	Skip bool

	// Blocks holds up to 12 coefficient blocks: 4 luma, then chroma in
	// Cb, Cr order. LastIndex[i] < 0 means block i has no coefficients.
	Blocks    [12]dsp.Block
	LastIndex [12]int
}

// ClearBlocks zeroes the coefficients and marks every block empty.
func (mb *Macroblock) ClearBlocks() {
	for i := range mb.Blocks {
		clear(mb.Blocks[i][:])
		mb.LastIndex[i] = -1
	}
}

// BlockParams is the quantizer of one 16x16 block as exported for side
// data consumers.
type BlockParams struct {
	X, Y, W, H int
	DeltaQP    int
}

// QScaleType selects how ExportQP scales table values.
type QScaleType int

const (
	QScaleMPEG1 QScaleType = iota
	QScaleMPEG2
)
