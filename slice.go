package mpv

import (
	"sync"

	"github.com/deepteams/mpv/internal/picture"
	"github.com/deepteams/mpv/internal/pool"
)

// plane is a window on picture samples: sample (x, y) of the window is
// pix[off + y*stride + x] for x in [0, w) and y in [0, h).
type plane struct {
	pix    []byte
	off    int
	stride int
	w, h   int
}

func planeOf(p *picture.Plane) plane {
	return plane{pix: p.Pix, off: p.Offset, stride: p.Stride, w: p.Width, h: p.Height}
}

// field returns the window of the top (0) or bottom (1) field.
func (p plane) field(sel int) plane {
	return plane{pix: p.pix, off: p.off + sel*p.stride, stride: 2 * p.stride, w: p.w, h: p.h >> 1}
}

func (p plane) at(x, y int) int { return p.off + y*p.stride + x }

// shift moves the window origin by (x, y) samples.
func (p plane) shift(x, y int) plane {
	p.off = p.at(x, y)
	return p
}

func fields(ps [3]plane, sel int) [3]plane {
	for i := range ps {
		ps[i] = ps[i].field(sel)
	}
	return ps
}

func framePlanes(b *picture.Buffer) [3]plane {
	var ps [3]plane
	for i := range ps {
		ps[i] = planeOf(&b.Planes[i])
	}
	return ps
}

// emuRows is the height of one plane region of the edge emulation scratch.
const emuRows = 18

// Slice is a sub-context that reconstructs macroblocks of the context's
// current picture. Slices of one context may run concurrently as long as
// they work on disjoint macroblocks; each owns its edge emulation scratch.
type Slice struct {
	c     *Context
	index int

	// StartRow and EndRow bound the macroblock rows assigned to the slice.
	StartRow, EndRow int

	emu       []byte
	emuStride int
}

// alloc sizes the scratch for a luma line size.
func (sl *Slice) alloc(linesize int) {
	sl.emuStride = (linesize + 64 + 31) &^ 31
	sl.emu = pool.GetZeroed(3 * emuRows * sl.emuStride)
}

func (sl *Slice) free() {
	if sl.emu != nil {
		pool.Put(sl.emu)
		sl.emu = nil
	}
}

// scratch returns the emulation region of plane p.
func (sl *Slice) scratch(p int) []byte {
	n := emuRows * sl.emuStride
	return sl.emu[p*n : (p+1)*n]
}

// Index returns the slice number.
func (sl *Slice) Index() int { return sl.index }

// dest returns the destination windows of macroblock (x, y).
func (sl *Slice) dest(x, y int) [3]plane {
	c := sl.c
	bs := 16 >> c.opts.Lowres
	cw, ch := bs>>c.chromaShiftX, bs>>c.chromaShiftY
	return [3]plane{
		c.cur[0].shift(x*bs, y*bs),
		c.cur[1].shift(x*cw, y*ch),
		c.cur[2].shift(x*cw, y*ch),
	}
}

// ReconstructMacroblock reconstructs mb on slice 0.
func (c *Context) ReconstructMacroblock(mb *Macroblock) {
	c.slices[0].ReconstructMacroblock(mb)
}

// RunSlices calls fn for every slice sub-context, concurrently when there
// is more than one, and returns the first error.
func (c *Context) RunSlices(fn func(sl *Slice) error) error {
	if len(c.slices) == 1 {
		return fn(c.slices[0])
	}
	errs := make([]error, len(c.slices))
	var wg sync.WaitGroup
	for i, sl := range c.slices {
		wg.Add(1)
		go func(i int, sl *Slice) {
			defer wg.Done()
			errs[i] = fn(sl)
		}(i, sl)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
