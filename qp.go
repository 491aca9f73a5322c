package mpv

// ExportQP returns the quantizer of every macroblock of the current
// picture as 16x16 blocks. MPEG-1 style scales are doubled.
func (c *Context) ExportQP(t QScaleType) []BlockParams {
	cur := c.store.Get(c.store.Roles.Current)
	if cur == nil || cur.Tables == nil {
		return nil
	}
	mult := 1
	if t == QScaleMPEG1 {
		mult = 2
	}
	tab := cur.Tables
	out := make([]BlockParams, 0, tab.MBWidth*tab.MBHeight)
	for y := 0; y < tab.MBHeight; y++ {
		for x := 0; x < tab.MBWidth; x++ {
			out = append(out, BlockParams{
				X: x * 16, Y: y * 16, W: 16, H: 16,
				DeltaQP: int(tab.QScale[y*tab.MBWidth+x]) * mult,
			})
		}
	}
	return out
}

// DrawHorizBand hands rows [y, y+h) of the picture being output to the
// band callback. For field pictures y and h count field rows and nothing
// is emitted until the second field.
func (c *Context) DrawHorizBand(y, h int) {
	if c.band == nil {
		return
	}
	if c.Params.Structure != FramePicture {
		y <<= 1
		h <<= 1
		if c.Params.FirstField {
			return
		}
	}

	src := c.store.Roles.Last
	if c.Params.PictureType == TypeB || c.Params.LowDelay {
		src = c.store.Roles.Current
	}
	f, err := c.frameOf(src)
	if err != nil {
		return
	}
	defer f.Release()
	h = min(h, f.Height-y)
	if h <= 0 {
		return
	}
	c.band(f, y, h)
}
