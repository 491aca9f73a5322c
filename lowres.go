package mpv

import "github.com/deepteams/mpv/internal/dsp"

// Reduced resolution prediction. Vectors keep their full resolution
// meaning; the fraction below one reduced sample is applied with the
// eighth-sample bilinear kernels.

func (c *Context) bilinear(avg bool) dsp.BilinearFunc {
	if avg {
		return c.kernels.AvgBilinear
	}
	return c.kernels.PutBilinear
}

func (sl *Slice) fetchLowres(f fetch, avg bool) {
	c := sl.c
	lowres := c.opts.Lowres
	bs := 8 >> lowres
	sMask := (2 << lowres) - 1
	op := c.bilinear(avg)

	mx, my := f.mv.X, f.mv.Y
	if c.Params.QuarterSample {
		mx /= 2
		my /= 2
	}
	if f.fieldBased {
		my += (f.bottom - f.sel) * ((1 << lowres) - 1)
	}

	yBase := f.yBase >> lowres
	h := f.h >> lowres

	sx, sy := mx&sMask, my&sMask
	srcX := f.mbX*2*bs + mx>>(lowres+1)
	srcY := yBase + my>>(lowres+1)

	var uvsx, uvsy, uvX, uvY int
	switch {
	case c.Params.Codec.outFormat() == fmtH263:
		uvsx = (mx>>1)&sMask | sx&1
		uvsy = (my>>1)&sMask | sy&1
		uvX, uvY = srcX>>1, srcY>>1
	case c.Params.Codec.outFormat() == fmtH261:
		cmx, cmy := mx/4, my/4
		uvsx = (2 * cmx) & sMask
		uvsy = (2 * cmy) & sMask
		uvX = f.mbX*bs + cmx>>lowres
		uvY = yBase>>1 + cmy>>lowres
	case c.chromaShiftY != 0:
		cmx, cmy := mx/2, my/2
		uvsx, uvsy = cmx&sMask, cmy&sMask
		uvX = f.mbX*bs + cmx>>(lowres+1)
		uvY = yBase>>1 + cmy>>(lowres+1)
	case c.chromaShiftX != 0:
		cmx := mx / 2
		uvsx, uvsy = cmx&sMask, my&sMask
		uvX = f.mbX*bs + cmx>>(lowres+1)
		uvY = srcY
	default:
		uvsx, uvsy = mx&sMask, my&sMask
		uvX, uvY = srcX, srcY
	}

	sx = (sx << 2) >> lowres
	sy = (sy << 2) >> lowres
	sl.predictBilinear(0, f.dst[0], f.ref[0], op, srcX, srcY, 2*bs, h, sx, sy)
	if c.opts.GrayOnly {
		return
	}

	hc := h
	if c.chromaShiftY != 0 {
		hc = (h + 1 - f.bottom) >> 1
	}
	cw := (2 * bs) >> c.chromaShiftX
	uvsx = (uvsx << 2) >> lowres
	uvsy = (uvsy << 2) >> lowres
	sl.predictBilinear(1, f.dst[1], f.ref[1], op, uvX, uvY, cw, hc, uvsx, uvsy)
	sl.predictBilinear(2, f.dst[2], f.ref[2], op, uvX, uvY, cw, hc, uvsx, uvsy)
}

// predictBilinear is predict for the eighth-sample kernels.
func (sl *Slice) predictBilinear(p int, dst, ref plane, op dsp.BilinearFunc, sx, sy, bw, bh, fx, fy int) {
	if bh <= 0 || bw <= 0 {
		return
	}
	rw, rh := bw, bh
	if fx != 0 {
		rw++
	}
	if fy != 0 {
		rh++
	}
	src, off, stride := ref.pix, 0, ref.stride
	if dsp.NeedsEmulation(sx, sy, rw, rh, ref.w, ref.h) {
		src, stride = sl.scratch(p), sl.emuStride
		dsp.EmulatedEdgeMC(src, stride, ref.pix, ref.off, ref.stride, rw, rh, sx, sy, ref.w, ref.h)
	} else {
		off = ref.at(sx, sy)
	}
	op(dst.pix, dst.off, dst.stride, src, off, stride, bw, bh, fx, fy)
}

func (sl *Slice) quadMotionLowres(mb *Macroblock, dst, ref [3]plane, q *Quad, avg bool) {
	c := sl.c
	lowres := c.opts.Lowres
	bs := 8 >> lowres
	sMask := (2 << lowres) - 1
	op := c.bilinear(avg)

	mx, my := 0, 0
	for i := 0; i < 4; i++ {
		vx, vy := q.MV[i].X, q.MV[i].Y
		mx += vx
		my += vy
		if c.Params.QuarterSample {
			vx /= 2
			vy /= 2
		}
		sx, sy := vx&sMask, vy&sMask
		srcX := (2*mb.X+(i&1))*bs + vx>>(lowres+1)
		srcY := (2*mb.Y+(i>>1))*bs + vy>>(lowres+1)
		d := dst[0].shift((i&1)*bs, (i>>1)*bs)
		sl.predictBilinear(0, d, ref[0], op, srcX, srcY, bs, bs, (sx<<2)>>lowres, (sy<<2)>>lowres)
	}
	if c.opts.GrayOnly {
		return
	}

	if c.Params.QuarterSample {
		mx /= 2
		my /= 2
	}
	mx = h263RoundChroma(mx)
	my = h263RoundChroma(my)
	sx, sy := mx&sMask, my&sMask
	srcX := mb.X*bs + mx>>(lowres+1)
	srcY := mb.Y*bs + my>>(lowres+1)
	fx, fy := (sx<<2)>>lowres, (sy<<2)>>lowres
	sl.predictBilinear(1, dst[1], ref[1], op, srcX, srcY, bs, bs, fx, fy)
	sl.predictBilinear(2, dst[2], ref[2], op, srcX, srcY, bs, bs, fx, fy)
}
