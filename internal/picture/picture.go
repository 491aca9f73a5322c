// Package picture implements the frame buffer pool shared by decode
// contexts: reference counted plane storage with per-field row progress,
// per-macroblock side tables and the fixed-size slot array addressed by
// handle.
package picture

import (
	"errors"
	"sync/atomic"

	"github.com/deepteams/mpv/internal/pool"
)

// MaxCount is the number of slots in a Store.
const MaxCount = 36

// EdgeWidth is the border in luma samples kept around every plane.
const EdgeWidth = 16

var (
	// ErrExhausted is returned by Acquire when every slot is in use.
	ErrExhausted = errors.New("picture: no free picture slot")

	// ErrStrideChanged is returned by AllocateStorage when the new planes
	// would not match the line size already in use by the context.
	ErrStrideChanged = errors.New("picture: stride changed")

	// ErrInvalidGeometry is returned for non-positive dimensions.
	ErrInvalidGeometry = errors.New("picture: invalid geometry")
)

// Type is the coding type of a picture.
type Type uint8

const (
	TypeNone Type = iota
	TypeI
	TypeP
	TypeB
	TypeS
)

func (t Type) String() string {
	switch t {
	case TypeI:
		return "I"
	case TypeP:
		return "P"
	case TypeB:
		return "B"
	case TypeS:
		return "S"
	}
	return "?"
}

// Structure values for Picture.Structure and the current field.
const (
	TopField    = 1
	BottomField = 2
	Frame       = 3
)

// Plane is one sample plane including its border. Sample (0, 0) of the
// visible area lives at Pix[Offset].
type Plane struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	Offset int
}

// Buffer is reference counted plane storage shared between the decode
// contexts of a frame-parallel pipeline.
type Buffer struct {
	Planes [3]Plane

	refs     atomic.Int32
	progress [2]Progress
}

func newBuffer() *Buffer {
	b := &Buffer{}
	b.refs.Store(1)
	for i := range b.progress {
		b.progress[i].init()
	}
	return b
}

// Ref adds a reference and returns b.
func (b *Buffer) Ref() *Buffer {
	b.refs.Add(1)
	return b
}

// Unref drops a reference. Plane memory returns to the pool with the last
// one.
func (b *Buffer) Unref() {
	if b.refs.Add(-1) != 0 {
		return
	}
	for i := range b.Planes {
		pool.Put(b.Planes[i].Pix)
		b.Planes[i].Pix = nil
	}
}

// Refs returns the current reference count.
func (b *Buffer) Refs() int { return int(b.refs.Load()) }

// Progress returns the row progress counter of the given field (0 top or
// frame, 1 bottom).
func (b *Buffer) Progress(field int) *Progress { return &b.progress[field] }

// Tables holds per-macroblock side information of one picture.
type Tables struct {
	MBWidth, MBHeight int

	// QScale and MBType are indexed by mbY*MBWidth + mbX.
	QScale []int8
	MBType []uint32

	// MotionVal holds one vector per 8x8 block for each direction, indexed
	// by (2*mbY + j)*B8Stride + 2*mbX + i.
	MotionVal [2][][2]int16
	B8Stride  int
}

// NewTables allocates tables for an mbWidth x mbHeight picture.
func NewTables(mbWidth, mbHeight int) *Tables {
	n := mbWidth * mbHeight
	t := &Tables{
		MBWidth:  mbWidth,
		MBHeight: mbHeight,
		QScale:   make([]int8, n),
		MBType:   make([]uint32, n),
		B8Stride: 2 * mbWidth,
	}
	for i := range t.MotionVal {
		t.MotionVal[i] = make([][2]int16, 4*n)
	}
	return t
}

// Picture is one slot of a Store: a buffer plus decoding metadata.
type Picture struct {
	Buf    *Buffer
	Tables *Tables

	// Reference is 0 for pictures no later frame predicts from, otherwise
	// the structure bits (TopField, BottomField, Frame) it is usable as.
	Reference int

	CodedPictureNumber int
	Type               Type
	KeyFrame           bool
	Structure          int
	Interlaced         bool
	TopFieldFirst      bool
	FieldPicture       bool

	// NeedsRealloc marks storage sized for an older geometry.
	NeedsRealloc bool
}

// Populated reports whether p holds decoded or placeholder samples.
func (p *Picture) Populated() bool { return p != nil && p.Buf != nil }

// reset unrefs the buffer and clears all metadata.
func (p *Picture) reset() {
	if p.Buf != nil {
		p.Buf.Unref()
	}
	*p = Picture{}
}
