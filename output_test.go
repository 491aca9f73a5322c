package mpv

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputFrame(t *testing.T) {
	c := newTestContext(t, nil, 30, 18)
	_, err := c.Output()
	require.ErrorIs(t, err, ErrNoPicture)

	h := startFrame(t, c, TypeI)
	paint(c.Picture(h).Buf)
	c.FrameEnd()

	f, err := c.Output()
	require.NoError(t, err)
	require.Equal(t, 30, f.Width)
	require.Equal(t, 18, f.Height)
	require.Equal(t, TypeI, f.Type)
	require.True(t, f.KeyFrame)
	require.Equal(t, 2, c.Picture(h).Buf.Refs())

	img := f.YCbCr()
	require.Equal(t, image.Rect(0, 0, 30, 18), img.Bounds())
	require.Equal(t, image.YCbCrSubsampleRatio420, img.SubsampleRatio)
	buf := c.Picture(h).Buf
	require.Equal(t, sample(buf, 0, 29, 17), img.YCbCrAt(29, 17).Y)
	require.Equal(t, sample(buf, 1, 14, 8), img.YCbCrAt(29, 17).Cb)
	require.Equal(t, sample(buf, 2, 3, 2), img.YCbCrAt(7, 5).Cr)

	// The frame outlives the slot.
	c.Flush()
	require.Equal(t, 1, f.buf.Refs())
	require.Equal(t, sample(f.buf, 0, 4, 4), img.YCbCrAt(4, 4).Y)
	f.Release()
	f.Release()
}

func TestOutputLowres(t *testing.T) {
	c := newTestContext(t, &Options{Lowres: 2}, 30, 18)
	c.Params.ChromaFormat = Chroma422
	startFrame(t, c, TypeI)
	f, err := c.Output()
	require.NoError(t, err)
	defer f.Release()
	require.Equal(t, 8, f.Width)
	require.Equal(t, 5, f.Height)
	require.Equal(t, image.YCbCrSubsampleRatio422, f.YCbCr().SubsampleRatio)
}

func TestExportQP(t *testing.T) {
	c, _, _ := predicted(t, nil)
	require.Len(t, c.ExportQP(QScaleMPEG2), 4)

	mb := interMB(1, 1, Single{}, nil)
	mb.QScale = 7
	c.ReconstructMacroblock(mb)

	qp := c.ExportQP(QScaleMPEG2)
	require.Equal(t, BlockParams{X: 16, Y: 16, W: 16, H: 16, DeltaQP: 7}, qp[3])
	require.Equal(t, BlockParams{X: 16, Y: 0, W: 16, H: 16}, qp[1])
	require.Equal(t, 14, c.ExportQP(QScaleMPEG1)[3].DeltaQP)
}

func TestDrawHorizBand(t *testing.T) {
	type band struct {
		typ  PictureType
		y, h int
	}
	var got []band
	c := newTestContext(t, nil, 32, 24)
	c.SetBandFunc(func(f *Frame, y, h int) {
		got = append(got, band{f.Type, y, h})
	})

	startFrame(t, c, TypeI)
	c.DrawHorizBand(0, 16)
	require.Empty(t, got, "nothing to show before the first reference")
	c.FrameEnd()

	startFrame(t, c, TypeP)
	c.DrawHorizBand(16, 16)
	c.FrameEnd()
	startFrame(t, c, TypeB)
	c.DrawHorizBand(0, 16)
	c.FrameEnd()
	require.Equal(t, []band{{TypeI, 16, 8}, {TypeB, 0, 16}}, got)

	got = nil
	c.Params.LowDelay = true
	c.Params.Structure = TopField
	startFrame(t, c, TypeP)
	c.DrawHorizBand(0, 8)
	require.Empty(t, got)
	c.Params.Structure = BottomField
	require.NoError(t, c.StartSecondField())
	c.DrawHorizBand(4, 8)
	require.Equal(t, []band{{TypeP, 8, 16}}, got)
}
