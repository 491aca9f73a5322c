package mpv

import (
	"fmt"

	"github.com/deepteams/mpv/internal/picture"
)

// UpdateThreadContext brings c up to date with src, the context that
// started the previous frame, before c starts its own. Afterwards c shares
// src's picture buffers by reference and mirrors its role set by index;
// nothing else is shared.
//
// If c has never been initialized and initialization fails, c is reset to
// an empty context pending reinitialization and the error wraps
// ErrPartialMerge.
func (c *Context) UpdateThreadContext(src *Context) error {
	if c == src {
		return nil
	}

	if !c.initialized {
		c.copyScalars(src)
		c.bitstream = nil
		if src.initialized {
			if err := c.Init(); err != nil {
				c.resetEmpty()
				return fmt.Errorf("%w: %w", ErrPartialMerge, err)
			}
		}
	}

	if c.initialized && src.initialized && (c.geom.Width != src.geom.Width ||
		c.geom.Height != src.geom.Height ||
		c.chromaShiftX != src.chromaShiftX || c.chromaShiftY != src.chromaShiftY ||
		src.reinit) {
		c.Params.Width, c.Params.Height = src.Params.Width, src.Params.Height
		c.Params.ChromaFormat = src.Params.ChromaFormat
		if err := c.FrameSizeChange(); err != nil {
			return err
		}
	}

	c.copyScalars(src)
	c.store.SyncFrom(src.store)

	if len(src.bitstream) > 0 {
		copy(c.ensureBitstream(len(src.bitstream)), src.bitstream)
	} else if c.bitstream != nil {
		c.bitstream = c.bitstream[:0]
	}

	if c.initialized && c.missingScratch() {
		if src.linesize == 0 {
			c.log.Error("context scratch buffers cannot be allocated before the line size is known")
		} else {
			c.linesize, c.uvlinesize = src.linesize, src.uvlinesize
			c.allocScratch(c.linesize)
		}
	} else if c.linesize == 0 && c.geom == src.geom {
		c.linesize, c.uvlinesize = src.linesize, src.uvlinesize
	}

	c.log.Debug("thread context updated", "from", src.id.String())
	return nil
}

// copyScalars copies the coding parameters and counters of src.
func (c *Context) copyScalars(src *Context) {
	c.Params = src.Params
	c.Interlace = src.Interlace
	c.Timing = src.Timing
	c.WorkaroundBugs = src.WorkaroundBugs
	c.PaddingBugScore = src.PaddingBugScore
	c.DivXPacked = src.DivXPacked
	c.codedPictureNumber = src.codedPictureNumber
	c.pictureNumber = src.pictureNumber
}

func (c *Context) missingScratch() bool {
	for _, sl := range c.slices {
		if sl.emu == nil {
			return true
		}
	}
	return false
}

// resetEmpty drops all state except identity, options and callbacks and
// leaves c pending reinitialization.
func (c *Context) resetEmpty() {
	c.Close()
	*c = Context{
		id:             c.id,
		log:            c.log,
		opts:           c.opts,
		kernels:        c.kernels,
		band:           c.band,
		store:          picture.NewStore(),
		state:          stateSetup,
		reinit:         true,
		WorkaroundBugs: c.opts.WorkaroundBugs,
	}
}
