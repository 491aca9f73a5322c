package mpv

import (
	"github.com/deepteams/mpv/internal/dsp"
	"github.com/deepteams/mpv/internal/picture"
)

// ReconstructMacroblock predicts mb from its reference pictures and adds the
// residual blocks in place. The context must be DECODING; slices may run
// concurrently on disjoint macroblocks.
func (sl *Slice) ReconstructMacroblock(mb *Macroblock) {
	c := sl.c
	sl.storeTables(mb)
	dst := sl.dest(mb.X, mb.Y)

	if !mb.Intra && !c.opts.DebugNoMC {
		sl.predictMacroblock(mb, dst)
	}
	sl.addResidual(mb, dst)
}

// predictMacroblock writes the forward prediction, then averages the
// backward one over it (or writes it when there is no forward one).
func (sl *Slice) predictMacroblock(mb *Macroblock, dst [3]plane) {
	c := sl.c
	r := c.store.Roles
	avg := false
	if mb.Forward != nil {
		if ref := c.store.Get(r.Last); ref.Populated() {
			c.awaitReference(ref, mb, mb.Forward)
			sl.motion(mb, dst, framePlanes(ref.Buf), mb.Forward, false)
			avg = true
		}
	}
	if mb.Backward != nil {
		if ref := c.store.Get(r.Next); ref.Populated() {
			c.awaitReference(ref, mb, mb.Backward)
			sl.motion(mb, dst, framePlanes(ref.Buf), mb.Backward, avg)
		}
	}
}

// awaitReference blocks until ref has decoded every row the partition can
// read.
func (c *Context) awaitReference(ref *picture.Picture, mb *Macroblock, part Partition) {
	ref.Buf.Progress(0).Await(c.lowestReferencedRow(mb, part))
}

// lowestReferencedRow returns the last macroblock row of the reference that
// part may read. Only frame pictures predicted without field vectors get a
// tight bound.
func (c *Context) lowestReferencedRow(mb *Macroblock, part Partition) int {
	last := c.mbHeight - 1
	if c.Params.Structure != FramePicture {
		return last
	}
	var mvs []Vector
	switch m := part.(type) {
	case Single:
		mvs = []Vector{m.MV}
	case HalfField:
		mvs = m.MV[:]
	case Quad:
		mvs = m.MV[:]
	default:
		return last
	}

	myMin, myMax := mvs[0].Y, mvs[0].Y
	for _, v := range mvs[1:] {
		myMin = min(myMin, v.Y)
		myMax = max(myMax, v.Y)
	}
	qpelShift := 1
	if c.Params.QuarterSample {
		qpelShift = 0
	}
	off := (max(-myMin, myMax)<<qpelShift + 63) >> 6
	return clamp(mb.Y+off, 0, last)
}

// storeTables records the quantizer, type and vectors of mb in the side
// tables of the current picture.
func (sl *Slice) storeTables(mb *Macroblock) {
	c := sl.c
	cur := c.store.Get(c.store.Roles.Current)
	if cur == nil || cur.Tables == nil {
		return
	}
	t := cur.Tables
	row := mb.Y
	if c.Params.Structure != FramePicture {
		row = 2*mb.Y + c.Params.Structure - TopField
	}
	if row >= t.MBHeight || mb.X >= t.MBWidth {
		return
	}
	i := row*t.MBWidth + mb.X
	t.QScale[i] = int8(mb.QScale)
	t.MBType[i] = mbTypeFlags(mb)

	for dir, part := range [2]Partition{mb.Forward, mb.Backward} {
		var mv [4]Vector
		if !mb.Intra && part != nil {
			mv = blockVectors(part)
		}
		for j := 0; j < 4; j++ {
			k := (2*row+j>>1)*t.B8Stride + 2*mb.X + j&1
			t.MotionVal[dir][k] = [2]int16{int16(mv[j].X), int16(mv[j].Y)}
		}
	}
}

func mbTypeFlags(mb *Macroblock) uint32 {
	if mb.Intra {
		return MBIntra
	}
	var f uint32
	if mb.Forward != nil {
		f |= MBForward
	}
	if mb.Backward != nil {
		f |= MBBackward
	}
	for _, p := range [2]Partition{mb.Forward, mb.Backward} {
		switch p.(type) {
		case Quad:
			f |= MBQuad
		case Field, HalfField, DualPrime:
			f |= MBInterlaced
		}
	}
	if mb.InterlacedDCT {
		f |= MBInterlaced
	}
	if mb.Skip {
		f |= MBSkip
	}
	return f
}

// blockVectors spreads a partition's vectors over the four 8x8 blocks.
func blockVectors(p Partition) [4]Vector {
	switch m := p.(type) {
	case Single:
		return [4]Vector{m.MV, m.MV, m.MV, m.MV}
	case Quad:
		return m.MV
	case Field:
		return [4]Vector{m.MV[0], m.MV[0], m.MV[1], m.MV[1]}
	case HalfField:
		return [4]Vector{m.MV[0], m.MV[0], m.MV[1], m.MV[1]}
	case DualPrime:
		return [4]Vector{m.MV[0], m.MV[0], m.MV[1], m.MV[1]}
	}
	return [4]Vector{}
}

// needsDequant reports whether the reconstructor has to dequantize blocks;
// the other families dequantize while parsing.
func (c *Context) needsDequant(intra bool) bool {
	p := &c.Params
	if intra {
		return p.Codec.outFormat() != fmtMPEG1
	}
	switch {
	case p.Codec.outFormat() == fmtMPEG1, p.Codec == CodecMSMPEG4:
		return false
	case p.Codec == CodecMPEG4 && !p.MPEGQuant:
		return false
	}
	return true
}

// addResidual transforms the coded blocks of mb into dst. Intra blocks
// overwrite the destination; inter blocks are added to the prediction and
// skipped when they carry no coefficient.
func (sl *Slice) addResidual(mb *Macroblock, dst [3]plane) {
	c := sl.c
	bs := 8 >> c.opts.Lowres

	y := dst[0]
	dctLS, dctOff := y.stride, y.stride*bs
	if mb.InterlacedDCT {
		dctLS, dctOff = y.stride*2, y.stride
	}
	sl.block(mb, 0, y.pix, y.off, dctLS)
	sl.block(mb, 1, y.pix, y.off+bs, dctLS)
	sl.block(mb, 2, y.pix, y.off+dctOff, dctLS)
	sl.block(mb, 3, y.pix, y.off+dctOff+bs, dctLS)
	if c.opts.GrayOnly {
		return
	}

	cb, cr := dst[1], dst[2]
	if c.Params.ChromaFormat == Chroma420 {
		sl.block(mb, 4, cb.pix, cb.off, cb.stride)
		sl.block(mb, 5, cr.pix, cr.off, cr.stride)
		return
	}
	uvLS, cOff := cb.stride, cb.stride*bs
	if mb.InterlacedDCT {
		uvLS, cOff = cb.stride*2, cb.stride
	}
	sl.block(mb, 4, cb.pix, cb.off, uvLS)
	sl.block(mb, 5, cr.pix, cr.off, uvLS)
	sl.block(mb, 6, cb.pix, cb.off+cOff, uvLS)
	sl.block(mb, 7, cr.pix, cr.off+cOff, uvLS)
	if c.Params.ChromaFormat == Chroma444 {
		sl.block(mb, 8, cb.pix, cb.off+bs, uvLS)
		sl.block(mb, 9, cr.pix, cr.off+bs, uvLS)
		sl.block(mb, 10, cb.pix, cb.off+bs+cOff, uvLS)
		sl.block(mb, 11, cr.pix, cr.off+bs+cOff, uvLS)
	}
}

func (sl *Slice) block(mb *Macroblock, i int, pix []byte, off, stride int) {
	c := sl.c
	b := &mb.Blocks[i]
	if !mb.Intra && mb.LastIndex[i] < 0 {
		return
	}
	if c.needsDequant(mb.Intra) {
		qp := dsp.QuantParams{
			QScale:        mb.QScale,
			DCScale:       c.Params.CDCScale,
			IntraMatrix:   c.Params.IntraMatrix,
			InterMatrix:   c.Params.InterMatrix,
			AdvancedIntra: c.Params.AdvancedIntra,
		}
		if i < 4 {
			qp.DCScale = c.Params.YDCScale
		}
		if mb.Intra {
			c.dequant.Intra(b, &qp)
		} else {
			c.dequant.Inter(b, &qp)
		}
	}
	if mb.Intra {
		dsp.IDCTPutLowres(pix, off, stride, b, c.opts.Lowres)
		return
	}
	dsp.IDCTAddLowres(pix, off, stride, b, c.opts.Lowres)
}
