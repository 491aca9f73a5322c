package mpv

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/mpv/internal/picture"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestContext returns a context for a w x h MPEG-2 4:2:0 frame stream.
func newTestContext(t testing.TB, opts *Options, w, h int) *Context {
	t.Helper()
	if opts == nil {
		opts = DefaultOptions()
	}
	opts.Logger = quietLogger()
	c, err := New(opts)
	require.NoError(t, err)
	c.Params = Params{
		Codec:        CodecMPEG2,
		Width:        w,
		Height:       h,
		ChromaFormat: Chroma420,
		PictureType:  TypeI,
		Structure:    FramePicture,
		FirstField:   true,
	}
	t.Cleanup(c.Close)
	return c
}

// startFrame begins a frame picture of type typ and returns its handle.
func startFrame(t testing.TB, c *Context, typ PictureType) Handle {
	t.Helper()
	require.NoError(t, c.BeginSetup())
	c.Params.PictureType = typ
	require.NoError(t, c.FrameStart())
	return c.Roles().Current
}

// paint fills the visible area of every plane with a gradient that stays
// well below 255.
func paint(b *picture.Buffer) {
	for i := range b.Planes {
		p := &b.Planes[i]
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Pix[p.Offset+y*p.Stride+x] = byte(x*3 + y*2 + i*20)
			}
		}
	}
}

// visible returns a packed copy of the visible samples of plane i.
func visible(b *picture.Buffer, i int) []byte {
	p := &b.Planes[i]
	out := make([]byte, 0, p.Width*p.Height)
	for y := 0; y < p.Height; y++ {
		row := p.Offset + y*p.Stride
		out = append(out, p.Pix[row:row+p.Width]...)
	}
	return out
}

func sample(b *picture.Buffer, i, x, y int) byte {
	p := &b.Planes[i]
	return p.Pix[p.Offset+y*p.Stride+x]
}

// interMB returns an inter macroblock without residual.
func interMB(x, y int, fwd, bwd Partition) *Macroblock {
	mb := &Macroblock{X: x, Y: y, Forward: fwd, Backward: bwd, QScale: 2}
	mb.ClearBlocks()
	return mb
}

func randomVector(rng *rand.Rand) Vector {
	return Vector{X: rng.Intn(1<<16) - 1<<15, Y: rng.Intn(1<<16) - 1<<15}
}

func randomPartition(rng *rand.Rand, quad bool) Partition {
	n := 4
	if quad {
		n = 5
	}
	switch rng.Intn(n) {
	case 0:
		return Single{MV: randomVector(rng)}
	case 1:
		return HalfField{
			MV:          [2]Vector{randomVector(rng), randomVector(rng)},
			FieldSelect: [2]int{rng.Intn(2), rng.Intn(2)},
		}
	case 2:
		return Field{
			MV:          [2]Vector{randomVector(rng), randomVector(rng)},
			FieldSelect: [2]int{rng.Intn(2), rng.Intn(2)},
		}
	case 3:
		var m DualPrime
		for i := range m.MV {
			m.MV[i] = randomVector(rng)
		}
		return m
	}
	var m Quad
	for i := range m.MV {
		m.MV[i] = randomVector(rng)
	}
	return m
}
