package mpv

import (
	"fmt"

	"github.com/deepteams/mpv/internal/dsp"
	"github.com/deepteams/mpv/internal/picture"
)

// BeginSetup moves a context whose previous frame has ended back to SETUP.
// It fails while a frame is being decoded.
func (c *Context) BeginSetup() error {
	if c.state == stateDecoding {
		return fmt.Errorf("%w: frame still decoding", ErrInvalidState)
	}
	c.state = stateSetup
	return nil
}

// ReservePicture acquires the slot the next FrameStart will decode into, so
// that header parsing can attach data to it early.
func (c *Context) ReservePicture() (Handle, error) {
	r := &c.store.Roles
	if r.Pending != NoPicture {
		return r.Pending, nil
	}
	h, err := c.store.Acquire()
	if err != nil {
		c.log.Error("no frame buffer available")
		return NoPicture, err
	}
	r.Pending = h
	return h, nil
}

// FrameStart begins decoding a picture described by Params: it retires the
// previous picture, rotates the reference roles, allocates the current
// picture and synthesizes missing references.
func (c *Context) FrameStart() error {
	if c.state != stateSetup {
		c.log.Error("attempt to start a frame outside SETUP state", "state", c.state.String())
		return ErrInvalidState
	}
	if err := c.ensureGeometry(); err != nil {
		return err
	}

	p := &c.Params
	s := c.store
	r := &s.Roles

	// Commit the picture decoded last time.
	if cur := s.Get(r.Current); cur != nil {
		if cur.Reference != 0 && cur.Type != TypeB {
			if r.Next != NoPicture {
				c.retireLast()
				r.Last = r.Next
			}
			r.Next = r.Current
		}
		r.Current = NoPicture
	}
	if p.PictureType != TypeB && r.Next != NoPicture {
		c.retireLast()
		r.Last, r.Next = r.Next, NoPicture
	}

	s.ReleaseUnreferenced()

	h := r.Pending
	r.Pending = NoPicture
	if h == NoPicture || s.Get(h).Populated() {
		var err error
		if h, err = s.Acquire(); err != nil {
			c.log.Error("no frame buffer available")
			return err
		}
	}
	if err := c.allocPicture(h); err != nil {
		return err
	}

	pic := s.Get(h)
	if !p.Droppable && p.PictureType != TypeB {
		pic.Reference = FramePicture
	}
	pic.CodedPictureNumber = c.codedPictureNumber
	c.codedPictureNumber++
	pic.TopFieldFirst = c.Interlace.TopFieldFirst
	if (p.Codec == CodecMPEG1 || p.Codec == CodecMPEG2) && p.Structure != FramePicture {
		pic.TopFieldFirst = (p.Structure == TopField) == p.FirstField
	}
	pic.Interlaced = !c.Interlace.ProgressiveFrame && !c.Interlace.ProgressiveSequence
	pic.FieldPicture = p.Structure != FramePicture
	pic.Structure = p.Structure
	pic.Type = p.PictureType
	pic.KeyFrame = p.PictureType == TypeI
	r.Current = h

	if p.PictureType != TypeI && !s.Get(r.Last).Populated() {
		if p.PictureType == TypeB && s.Get(r.Next).Populated() {
			c.log.Debug("allocating placeholder last picture for B frame")
		} else {
			c.log.Warn("first frame is no keyframe", "type", p.PictureType.String())
		}
		ph, err := c.placeholder()
		if err != nil {
			c.dropCurrent()
			return err
		}
		r.Last = ph
	}
	if p.PictureType == TypeB && !s.Get(r.Next).Populated() {
		ph, err := c.placeholder()
		if err != nil {
			c.dropCurrent()
			return err
		}
		r.Next = ph
	}

	c.setDestView()
	c.dequant = c.selectDequantizer()
	if c.opts.DebugNoMC {
		s.Fill(h, 0x80, 0x80)
	}

	c.errorOccurred = false
	c.mbX, c.mbY = 0, 0
	c.state = stateDecoding
	return nil
}

// ensureGeometry brings the context in line with Params before a frame.
func (c *Context) ensureGeometry() error {
	if !c.initialized {
		return c.Init()
	}
	sx, sy, _ := c.Params.ChromaFormat.shifts()
	if c.reinit || c.Params.Width != c.geom.Width || c.Params.Height != c.geom.Height ||
		sx != c.chromaShiftX || sy != c.chromaShiftY {
		c.log.Debug("frame size change", "width", c.Params.Width, "height", c.Params.Height)
		return c.FrameSizeChange()
	}
	return nil
}

// dropCurrent releases a current picture that never started decoding, so
// the next FrameStart does not commit it as a reference.
func (c *Context) dropCurrent() {
	r := &c.store.Roles
	c.store.Release(r.Current)
	r.Current = NoPicture
}

// retireLast releases the last reference unless it is also the next one.
func (c *Context) retireLast() {
	r := &c.store.Roles
	if r.Last != NoPicture && r.Last != r.Next {
		c.store.Release(r.Last)
	}
	r.Last = NoPicture
}

// allocPicture gives slot h planes for the context geometry and sizes the
// scratch buffers once the line size is known.
func (c *Context) allocPicture(h Handle) error {
	if err := c.store.AllocateStorage(h, c.geom, c.linesize); err != nil {
		c.log.Error("picture allocation failed", "err", err)
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	b := c.store.Get(h).Buf
	if c.linesize == 0 {
		c.linesize = b.Planes[0].Stride
		c.uvlinesize = b.Planes[1].Stride
	}
	c.allocScratch(c.linesize)
	return nil
}

// placeholder synthesizes a fully progressed gray reference picture.
func (c *Context) placeholder() (Handle, error) {
	h, err := c.store.Acquire()
	if err != nil {
		c.log.Error("no frame buffer available")
		return NoPicture, err
	}
	if err := c.allocPicture(h); err != nil {
		return NoPicture, err
	}
	pic := c.store.Get(h)
	pic.Reference = FramePicture
	pic.KeyFrame = false
	pic.Type = TypeP
	pic.Structure = FramePicture

	luma := byte(0x80)
	if c.Params.Codec == CodecFLV1 || c.Params.Codec == CodecH263 {
		luma = 16
	}
	c.store.Fill(h, luma, 0x80)
	pic.Buf.Progress(0).Report(picture.Done)
	pic.Buf.Progress(1).Report(picture.Done)
	return h, nil
}

// setDestView derives the destination planes of the current picture for
// the structure being decoded.
func (c *Context) setDestView() {
	cur := c.store.Get(c.store.Roles.Current)
	if cur == nil || cur.Buf == nil {
		c.cur = [3]plane{}
		return
	}
	for i := range c.cur {
		pl := planeOf(&cur.Buf.Planes[i])
		if c.Params.Structure != FramePicture {
			pl = pl.field(c.Params.Structure - 1)
		}
		c.cur[i] = pl
	}
}

// selectDequantizer picks the dequantizer family for the frame.
func (c *Context) selectDequantizer() *dsp.Dequantizer {
	p := &c.Params
	switch {
	case p.MPEGQuant || p.Codec == CodecMPEG2:
		return &dsp.MPEG2Dequant
	case p.Codec.outFormat() == fmtH263 || p.Codec.outFormat() == fmtH261:
		return &dsp.H263Dequant
	}
	return &dsp.MPEG1Dequant
}

// StartSecondField switches to the second field of the current field
// picture. Params.Structure must already name the new parity.
func (c *Context) StartSecondField() error {
	if c.state != stateDecoding || c.store.Roles.Current == NoPicture {
		return fmt.Errorf("%w: no field picture in progress", ErrInvalidState)
	}
	if c.Params.Structure == FramePicture {
		return fmt.Errorf("%w: second field of a frame picture", ErrInvalidState)
	}
	c.Params.FirstField = false
	c.store.Get(c.store.Roles.Current).Structure = FramePicture
	c.setDestView()
	c.mbX, c.mbY = 0, 0
	return nil
}

// FrameEnd finishes the current picture. Reference pictures are published
// as fully decoded.
func (c *Context) FrameEnd() {
	if c.kernels.Finish != nil {
		c.kernels.Finish()
	}
	if cur := c.store.Get(c.store.Roles.Current); cur != nil && cur.Reference != 0 && cur.Buf != nil {
		cur.Buf.Progress(0).Report(picture.Done)
	}
	c.pictureNumber++
	c.state = stateDone
}

// ReportDecodeProgress publishes that macroblock row mbY of the current
// picture is final. B pictures, partitioned frames and damaged frames
// publish nothing.
func (c *Context) ReportDecodeProgress(mbY int) {
	c.mbY = mbY
	if c.Params.PictureType == TypeB || c.Params.PartitionedFrame || c.errorOccurred {
		return
	}
	if cur := c.store.Get(c.store.Roles.Current); cur != nil && cur.Buf != nil {
		cur.Buf.Progress(0).Report(mbY)
	}
}

// abortFrame publishes the current picture as complete so that dependent
// frames never wait on a frame that failed to decode.
func (c *Context) abortFrame() {
	c.errorOccurred = true
	if cur := c.store.Get(c.store.Roles.Current); cur != nil && cur.Buf != nil {
		cur.Buf.Progress(0).Report(picture.Done)
		cur.Buf.Progress(1).Report(picture.Done)
	}
}

// Flush releases every picture and empties all roles, as on a seek.
func (c *Context) Flush() {
	c.store.ReleaseAll()
	c.cur = [3]plane{}
	c.mbX, c.mbY = 0, 0
	c.state = stateSetup
}

// FrameSizeChange re-derives all geometry dependent state after
// Params.Width, Params.Height or Params.ChromaFormat changed. Every picture
// is marked for reallocation and the roles are cleared. On failure the
// context is torn down and flagged for reinitialization.
func (c *Context) FrameSizeChange() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	c.freeFrame()
	c.store.MarkRealloc()
	c.store.Roles = picture.EmptyRoles()

	if err := c.initFrame(); err != nil {
		c.freeFrame()
		c.reinit = true
		c.log.Error("frame size change failed", "err", err)
		return err
	}
	c.reinit = false
	return nil
}
