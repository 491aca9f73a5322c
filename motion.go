package mpv

import (
	"fmt"

	"github.com/deepteams/mpv/internal/dsp"
)

// fetch describes one prediction of a 16-wide luma region and its chroma.
// yBase is the first luma row of the region inside ref, in full resolution
// rows; h is its height. fieldBased, bottom and sel are the field
// arithmetic inputs of frame pictures predicted field by field.
type fetch struct {
	dst, ref   [3]plane
	mv         Vector
	mbX        int
	yBase, h   int
	fieldBased bool
	bottom     int
	sel        int
}

// hpelVector converts a quarter-sample vector to half samples.
func (c *Context) hpelVector(v Vector) Vector {
	if c.Params.QuarterSample {
		return Vector{v.X / 2, v.Y / 2}
	}
	return v
}

// refField returns the field window sel of ref for field pictures and ref
// itself for frame pictures.
func (c *Context) refField(ref [3]plane, sel int) [3]plane {
	if c.Params.Structure == FramePicture {
		return ref
	}
	return fields(ref, sel)
}

// currentFrame returns the frame planes of the picture being decoded.
func (c *Context) currentFrame() [3]plane {
	return framePlanes(c.store.Get(c.store.Roles.Current).Buf)
}

// motion predicts one direction of mb into dst from the frame planes of
// ref. avg selects the averaging kernels.
func (sl *Slice) motion(mb *Macroblock, dst, ref [3]plane, part Partition, avg bool) {
	c := sl.c
	p := &c.Params
	frame := p.Structure == FramePicture
	cur := p.Structure - 1

	switch m := part.(type) {
	case Single:
		r := ref
		if !frame {
			r = fields(ref, cur)
		}
		sl.fetch(fetch{dst: dst, ref: r, mv: m.MV, mbX: mb.X, yBase: mb.Y * 16, h: 16}, avg)

	case Quad:
		sl.quadMotion(mb, dst, ref, &m, avg)

	case Field:
		if frame {
			for f := 0; f < 2; f++ {
				sl.fetch(fetch{
					dst: fields(dst, f), ref: fields(ref, m.FieldSelect[f]),
					mv: m.MV[f], mbX: mb.X, yBase: mb.Y * 8, h: 8,
					fieldBased: true, bottom: f, sel: m.FieldSelect[f],
				}, avg)
			}
			return
		}
		r := ref
		if p.Structure != m.FieldSelect[0]+1 && p.PictureType != TypeB && !p.FirstField {
			r = c.currentFrame()
		}
		sl.fetch(fetch{dst: dst, ref: fields(r, m.FieldSelect[0]), mv: m.MV[0], mbX: mb.X, yBase: mb.Y * 16, h: 16}, avg)

	case HalfField:
		rows := 8 >> c.opts.Lowres
		for i := 0; i < 2; i++ {
			r := ref
			if !frame && p.Structure != m.FieldSelect[i]+1 && p.PictureType != TypeB && !p.FirstField {
				r = c.currentFrame()
			}
			d := dst
			if i == 1 {
				d[0] = d[0].shift(0, rows)
				d[1] = d[1].shift(0, rows>>c.chromaShiftY)
				d[2] = d[2].shift(0, rows>>c.chromaShiftY)
			}
			f := fetch{dst: d, ref: c.refField(r, m.FieldSelect[i]), mv: m.MV[i], mbX: mb.X, yBase: mb.Y*16 + 8*i, h: 8}
			if c.opts.Lowres == 0 {
				// At full resolution the lower half is reached through the
				// vector, so chroma rounds the combined offset.
				f.mv.Y += 16 * i
				f.yBase = mb.Y * 16
			}
			sl.fetch(f, avg)
		}

	case DualPrime:
		if frame {
			a := avg
			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					sl.fetch(fetch{
						dst: fields(dst, j), ref: fields(ref, j^i),
						mv: m.MV[2*i+j], mbX: mb.X, yBase: mb.Y * 8, h: 8,
						fieldBased: true, bottom: j, sel: j ^ i,
					}, a)
				}
				a = true
			}
			return
		}
		r, a := ref, avg
		for i := 0; i < 2; i++ {
			sel := 0
			if p.Structure != i+1 {
				sel = 1
			}
			sl.fetch(fetch{dst: dst, ref: fields(r, sel), mv: m.MV[2*i], mbX: mb.X, yBase: mb.Y * 16, h: 16}, a)
			a = true
			// The opposite parity of a second field is the first field of
			// the same frame.
			if !p.FirstField {
				r = c.currentFrame()
			}
		}

	default:
		panic(fmt.Sprintf("mpv: unknown partition %T", part))
	}
}

// fetch dispatches to the full or reduced resolution predictor.
func (sl *Slice) fetch(f fetch, avg bool) {
	if sl.c.opts.Lowres > 0 {
		sl.fetchLowres(f, avg)
		return
	}
	tab := &sl.c.kernels.Put
	if avg {
		tab = &sl.c.kernels.Avg
	}
	sl.mpegMotion(f, tab)
}

// mpegMotion predicts a 16 x h luma region and its chroma at half-sample
// precision.
func (sl *Slice) mpegMotion(f fetch, tab *dsp.HpelTable) {
	c := sl.c
	v := c.hpelVector(f.mv)
	mx, my := v.X, v.Y

	x0 := f.mbX * 16
	dxy := (my&1)<<1 | mx&1
	srcX := x0 + mx>>1
	srcY := f.yBase + my>>1

	var uvdxy, uvX, uvY int
	switch {
	case c.Params.Codec.outFormat() == fmtH263:
		if c.WorkaroundBugs&BugHpelChroma != 0 && f.fieldBased {
			cmx := (mx >> 1) | (mx & 1)
			cmy := my >> 1
			uvdxy = (cmy&1)<<1 | cmx&1
			uvX = x0>>1 + cmx>>1
			uvY = f.yBase>>1 + cmy>>1
		} else {
			uvdxy = dxy | my&2 | (mx&2)>>1
			uvX, uvY = srcX>>1, srcY>>1
		}
	case c.Params.Codec.outFormat() == fmtH261:
		// Chroma vectors are full sample.
		cmx, cmy := mx/4, my/4
		uvX = x0>>1 + cmx
		uvY = f.yBase>>1 + cmy
	case c.chromaShiftY != 0:
		cmx, cmy := mx/2, my/2
		uvdxy = (cmy&1)<<1 | cmx&1
		uvX = x0>>1 + cmx>>1
		uvY = f.yBase>>1 + cmy>>1
	case c.chromaShiftX != 0:
		cmx := mx / 2
		uvdxy = (my&1)<<1 | cmx&1
		uvX = x0>>1 + cmx>>1
		uvY = srcY
	default:
		uvdxy = dxy
		uvX, uvY = srcX, srcY
	}

	sl.predict(0, f.dst[0], f.ref[0], tab, dxy, srcX, srcY, 16, f.h)
	if c.opts.GrayOnly {
		return
	}
	cw, ch := 16>>c.chromaShiftX, f.h>>c.chromaShiftY
	sl.predict(1, f.dst[1], f.ref[1], tab, uvdxy, uvX, uvY, cw, ch)
	sl.predict(2, f.dst[2], f.ref[2], tab, uvdxy, uvX, uvY, cw, ch)
}

// predict runs one half-sample kernel, reading through the emulation
// scratch whenever the source window leaves the reference.
func (sl *Slice) predict(p int, dst, ref plane, tab *dsp.HpelTable, dxy, sx, sy, bw, bh int) {
	if bh <= 0 {
		return
	}
	rw, rh := bw+dxy&1, bh+dxy>>1
	src, off, stride := ref.pix, 0, ref.stride
	if dsp.NeedsEmulation(sx, sy, rw, rh, ref.w, ref.h) {
		src, stride = sl.scratch(p), sl.emuStride
		dsp.EmulatedEdgeMC(src, stride, ref.pix, ref.off, ref.stride, rw, rh, sx, sy, ref.w, ref.h)
	} else {
		off = ref.at(sx, sy)
	}
	tab[dxy](dst.pix, dst.off, dst.stride, src, off, stride, bw, bh)
}

// h263RoundChroma maps the sum of four luma vector components to one
// chroma component.
func h263RoundChroma(x int) int {
	return int(h263ChromaRoundTab[x&0xf]) + ((x >> 3) &^ 1)
}

var h263ChromaRoundTab = [16]uint8{0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2}

// quadMotion predicts four 8x8 luma blocks and one 8x8 chroma block per
// plane from their rounded sum.
func (sl *Slice) quadMotion(mb *Macroblock, dst, ref [3]plane, q *Quad, avg bool) {
	c := sl.c
	if c.opts.Lowres > 0 {
		sl.quadMotionLowres(mb, dst, ref, q, avg)
		return
	}
	tab := &c.kernels.Put
	if avg {
		tab = &c.kernels.Avg
	}

	// Clamp against the coded size, not the macroblock-aligned planes.
	w, h := c.Params.Width, c.Params.Height
	mx, my := 0, 0
	for i := 0; i < 4; i++ {
		v := c.hpelVector(q.MV[i])
		dxy := (v.Y&1)<<1 | v.X&1
		sx := mb.X*16 + v.X>>1 + (i&1)*8
		sy := mb.Y*16 + v.Y>>1 + (i>>1)*8

		sx = clamp(sx, -16, w)
		if sx == w {
			dxy &^= 1
		}
		sy = clamp(sy, -16, h)
		if sy == h {
			dxy &^= 2
		}
		sl.predict(0, dst[0].shift((i&1)*8, (i>>1)*8), ref[0], tab, dxy, sx, sy, 8, 8)
		mx += v.X
		my += v.Y
	}
	if c.opts.GrayOnly {
		return
	}

	mx = h263RoundChroma(mx)
	my = h263RoundChroma(my)
	dxy := (my&1)<<1 | mx&1
	mx >>= 1
	my >>= 1

	sx := clamp(mb.X*8+mx, -8, w>>1)
	if sx == w>>1 {
		dxy &^= 1
	}
	sy := clamp(mb.Y*8+my, -8, h>>1)
	if sy == h>>1 {
		dxy &^= 2
	}
	sl.predict(1, dst[1], ref[1], tab, dxy, sx, sy, 8, 8)
	sl.predict(2, dst[2], ref[2], tab, dxy, sx, sy, 8, 8)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
