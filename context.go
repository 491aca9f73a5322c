package mpv

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/deepteams/mpv/internal/dsp"
	"github.com/deepteams/mpv/internal/picture"
	"github.com/deepteams/mpv/internal/pool"
)

// Handle addresses a picture slot. Handles are stable between the contexts
// of a pipeline.
type Handle = picture.Handle

// NoPicture is the empty handle.
const NoPicture = picture.None

// Roles is the reference role set of a context.
type Roles = picture.Roles

// Params are the coding parameters the bitstream layer sets before each
// picture. They are copied between worker contexts by UpdateThreadContext.
type Params struct {
	Codec        Codec
	Width        int // coded luma width
	Height       int // coded luma height
	ChromaFormat ChromaFormat

	PictureType PictureType
	Structure   int // FramePicture, TopField or BottomField
	FirstField  bool
	Droppable   bool

	QuarterSample    bool
	MPEGQuant        bool // MPEG-4 matrix quantization
	AdvancedIntra    bool // H.263 Annex I
	PartitionedFrame bool

	YDCScale, CDCScale       int
	IntraMatrix, InterMatrix *[64]uint16

	LowDelay   bool
	MaxBFrames int
}

// Interlace holds the MPEG-2 interlacing flags of the sequence.
type Interlace struct {
	ProgressiveSequence bool
	ProgressiveFrame    bool
	TopFieldFirst       bool
	AlternateScan       bool
}

// Timing is the MPEG-4 time base state needed to derive B-frame vectors.
type Timing struct {
	LastTimeBase int64
	TimeBase     int64
	Time         int64
	LastNonBTime int64
	PPTime       int64
	PBTime       int64
	PPFieldTime  int64
	PBFieldTime  int64
}

type frameState int

const (
	stateSetup frameState = iota
	stateDecoding
	stateDone
)

func (s frameState) String() string {
	switch s {
	case stateSetup:
		return "setup"
	case stateDecoding:
		return "decoding"
	}
	return "done"
}

// bitstreamPadding is the number of zero bytes kept after the bitstream
// scratch contents.
const bitstreamPadding = 64

// BandFunc receives horizontal bands of the current picture as they are
// completed. y and h are in luma rows of the output picture.
type BandFunc func(f *Frame, y, h int)

// Context is the per-worker decode state: coding parameters, the picture
// pool with its role set, and scratch buffers. A Context is used by one
// goroutine at a time; Slice sub-contexts may run concurrently during
// DECODING.
type Context struct {
	Params    Params
	Interlace Interlace
	Timing    Timing

	WorkaroundBugs  uint32
	PaddingBugScore int
	DivXPacked      bool

	id      uuid.UUID
	log     *slog.Logger
	opts    Options
	kernels *dsp.Kernels

	initialized   bool
	reinit        bool
	state         frameState
	errorOccurred bool

	codedPictureNumber int
	pictureNumber      int

	store *picture.Store

	geom                       picture.Geometry
	mbWidth, mbHeight          int
	chromaShiftX, chromaShiftY int
	linesize, uvlinesize       int

	// Destination view of the current picture, set by FrameStart.
	cur     [3]plane
	dequant *dsp.Dequantizer

	slices    []*Slice
	bitstream []byte
	band      BandFunc

	mbX, mbY int
}

// New returns an uninitialized context. A nil opts means DefaultOptions.
func New(opts *Options) (*Context, error) {
	var o Options
	if opts != nil {
		o = *opts
	} else {
		o = *DefaultOptions()
	}
	o.applyDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	c := &Context{
		id:    uuid.New(),
		opts:  o,
		store: picture.NewStore(),
		state: stateSetup,
	}
	c.WorkaroundBugs = o.WorkaroundBugs
	c.setLogger(o.Logger)
	c.kernels = o.Kernels
	if c.kernels == nil {
		c.kernels = dsp.Default()
	}
	return c, nil
}

func (c *Context) setLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	c.log = l.With("ctx", c.id.String())
}

// ID returns the context identifier used in logs.
func (c *Context) ID() uuid.UUID { return c.id }

// Options returns the options the context was created with.
func (c *Context) Options() Options { return c.opts }

// Initialized reports whether Init has succeeded.
func (c *Context) Initialized() bool { return c.initialized }

// NeedsReinit reports whether the last geometry change failed.
func (c *Context) NeedsReinit() bool { return c.reinit }

// PictureNumber returns the number of frames ended so far.
func (c *Context) PictureNumber() int { return c.pictureNumber }

// Roles returns the current role set.
func (c *Context) Roles() Roles { return c.store.Roles }

// Picture returns the slot h, or nil for NoPicture.
func (c *Context) Picture(h Handle) *picture.Picture { return c.store.Get(h) }

// MBSize returns the picture size in macroblocks.
func (c *Context) MBSize() (w, h int) { return c.mbWidth, c.mbHeight }

// Slice returns slice sub-context i. Slice 0 always exists once the
// context is initialized.
func (c *Context) Slice(i int) *Slice { return c.slices[i] }

// NumSlices returns the number of slice sub-contexts.
func (c *Context) NumSlices() int { return len(c.slices) }

// SetBandFunc installs the horizontal band callback.
func (c *Context) SetBandFunc(f BandFunc) { c.band = f }

// SetErrorOccurred flags the current frame as damaged. Row progress is then
// withheld for partitioned frames.
func (c *Context) SetErrorOccurred(v bool) { c.errorOccurred = v }

// Init sets the context up for Params.Width x Params.Height. It must be
// called once the sequence header is known.
func (c *Context) Init() error {
	if err := c.initFrame(); err != nil {
		c.freeFrame()
		return err
	}
	c.initialized = true
	c.reinit = false
	return nil
}

// checkSize rejects geometries whose padded area could overflow plane
// offsets.
func checkSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrSizeValidation, w, h)
	}
	if uint64(w+128)*uint64(h+128) >= math.MaxInt32/8 {
		return fmt.Errorf("%w: %dx%d too large", ErrSizeValidation, w, h)
	}
	return nil
}

// initFrame derives the per-geometry state and the slice sub-contexts.
func (c *Context) initFrame() error {
	if err := checkSize(c.Params.Width, c.Params.Height); err != nil {
		return err
	}
	sx, sy, ok := c.Params.ChromaFormat.shifts()
	if !ok {
		return fmt.Errorf("%w: chroma format %d", ErrSizeValidation, c.Params.ChromaFormat)
	}
	c.chromaShiftX, c.chromaShiftY = sx, sy
	c.geom = picture.Geometry{
		Width:        c.Params.Width,
		Height:       c.Params.Height,
		ChromaShiftX: sx,
		ChromaShiftY: sy,
		Lowres:       c.opts.Lowres,
	}
	c.mbWidth, c.mbHeight = c.geom.MBSize()
	c.initSlices()
	return nil
}

// freeFrame drops everything initFrame derived.
func (c *Context) freeFrame() {
	for _, sl := range c.slices {
		sl.free()
	}
	c.slices = nil
	c.geom = picture.Geometry{}
	c.mbWidth, c.mbHeight = 0, 0
	c.linesize, c.uvlinesize = 0, 0
	c.cur = [3]plane{}
}

// initSlices splits the macroblock rows between SliceThreads sub-contexts.
func (c *Context) initSlices() {
	n := c.opts.SliceThreads
	if n > c.mbHeight {
		n = c.mbHeight
	}
	c.slices = make([]*Slice, n)
	for i := range c.slices {
		c.slices[i] = &Slice{
			c:        c,
			index:    i,
			StartRow: (c.mbHeight*i + n/2) / n,
			EndRow:   (c.mbHeight*(i+1) + n/2) / n,
		}
	}
}

// allocScratch sizes the edge emulation buffers of every slice for the
// given luma line size.
func (c *Context) allocScratch(linesize int) {
	for _, sl := range c.slices {
		if sl.emu == nil {
			sl.alloc(linesize)
		}
	}
}

// ensureBitstream grows the bitstream scratch to hold n bytes plus zeroed
// padding. Existing contents are kept.
func (c *Context) ensureBitstream(n int) []byte {
	need := n + bitstreamPadding
	if cap(c.bitstream) < need {
		c.bitstream = pool.Grow(c.bitstream, need)
	}
	c.bitstream = c.bitstream[:n]
	clear(c.bitstream[n:need])
	return c.bitstream
}

// SetBitstream stores a copy of b as the context's bitstream scratch (used
// by packed B-frame streams that carry a frame over to the next packet).
func (c *Context) SetBitstream(b []byte) {
	copy(c.ensureBitstream(len(b)), b)
}

// Bitstream returns the bitstream scratch contents.
func (c *Context) Bitstream() []byte { return c.bitstream }

// Close releases every picture and scratch buffer.
func (c *Context) Close() {
	c.store.ReleaseAll()
	c.freeFrame()
	if c.bitstream != nil {
		pool.Put(c.bitstream)
		c.bitstream = nil
	}
	c.initialized = false
}
