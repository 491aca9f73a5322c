package mpv

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestH263RoundChroma(t *testing.T) {
	tests := []struct {
		sum, want int
	}{
		{0, 0},
		{2, 0},
		{3, 1},
		{12, 1}, // four (3,3) vectors
		{13, 1},
		{14, 2},
		{15, 2},
		{16, 2},
		{19, 3},
		{-4, -1},
		{-12, -1},
		{-14, -2},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, h263RoundChroma(tt.sum), "sum %d", tt.sum)
	}
}

func TestQuadChromaVector(t *testing.T) {
	tests := []struct {
		name string
		mv   [4]Vector
		want func(x, y int) int
	}{
		{"zero", [4]Vector{}, func(x, y int) int { return 4*x + 8*y }},
		// Sum 12 rounds to 1: half sample in both directions.
		{"three", [4]Vector{{3, 3}, {3, 3}, {3, 3}, {3, 3}}, func(x, y int) int { return 4*x + 8*y + 6 }},
		// Sum 14 rounds to 2: one full chroma sample to the right.
		{"fourteen", [4]Vector{{14, 0}}, func(x, y int) int { return 4*(x+1) + 8*y }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, nil, 32, 32)
			c.Params.Codec = CodecMPEG4
			i := startFrame(t, c, TypeI)
			for pl := 1; pl < 3; pl++ {
				p := &c.Picture(i).Buf.Planes[pl]
				for y := 0; y < p.Height; y++ {
					for x := 0; x < p.Width; x++ {
						p.Pix[p.Offset+y*p.Stride+x] = byte(4*x + 8*y)
					}
				}
			}
			c.FrameEnd()

			h := startFrame(t, c, TypeP)
			c.ReconstructMacroblock(interMB(0, 0, Quad{MV: tt.mv}, nil))
			buf := c.Picture(h).Buf
			for pl := 1; pl < 3; pl++ {
				for y := 0; y < 8; y++ {
					for x := 0; x < 8; x++ {
						require.Equal(t, byte(tt.want(x, y)), sample(buf, pl, x, y), "plane %d (%d,%d)", pl, x, y)
					}
				}
			}
		})
	}
}

// copyRun decodes an I picture and a P picture predicted with zero vectors
// and returns both handles.
func copyRun(t *testing.T, opts *Options, part Partition) (*Context, Handle, Handle) {
	c := newTestContext(t, opts, 32, 32)
	i := startFrame(t, c, TypeI)
	paint(c.Picture(i).Buf)
	c.FrameEnd()

	p := startFrame(t, c, TypeP)
	mbw, mbh := c.MBSize()
	for y := 0; y < mbh; y++ {
		for x := 0; x < mbw; x++ {
			c.ReconstructMacroblock(interMB(x, y, part, nil))
		}
	}
	c.FrameEnd()
	return c, i, p
}

func TestZeroMotionCopiesReference(t *testing.T) {
	parts := []Partition{
		Single{},
		Quad{},
		HalfField{FieldSelect: [2]int{0, 0}},
		Field{FieldSelect: [2]int{0, 1}},
	}
	for _, lowres := range []int{0, 1, 2, 3} {
		for _, part := range parts {
			if _, ok := part.(Field); ok && lowres == 3 {
				// A single chroma row per macroblock cannot be split in
				// fields.
				continue
			}
			t.Run(fmt.Sprintf("lowres%d/%T", lowres, part), func(t *testing.T) {
				c, i, p := copyRun(t, &Options{Lowres: lowres}, part)
				for pl := 0; pl < 3; pl++ {
					require.Equal(t, visible(c.Picture(i).Buf, pl), visible(c.Picture(p).Buf, pl), "plane %d", pl)
				}
			})
		}
	}
}

func TestFullSampleMotion(t *testing.T) {
	c := newTestContext(t, nil, 32, 32)
	i := startFrame(t, c, TypeI)
	paint(c.Picture(i).Buf)
	c.FrameEnd()

	p := startFrame(t, c, TypeP)
	// Two luma samples right, one chroma sample right.
	c.ReconstructMacroblock(interMB(0, 0, Single{MV: Vector{4, 0}}, nil))
	ref, cur := c.Picture(i).Buf, c.Picture(p).Buf
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			require.Equal(t, sample(ref, 0, x+2, y), sample(cur, 0, x, y))
		}
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			require.Equal(t, sample(ref, 1, x+1, y), sample(cur, 1, x, y))
		}
	}
}

func TestMotionClampsAtEdges(t *testing.T) {
	c := newTestContext(t, nil, 32, 32)
	i := startFrame(t, c, TypeI)
	paint(c.Picture(i).Buf)
	c.FrameEnd()

	p := startFrame(t, c, TypeP)
	// Far up and left: every sample replicates the top-left corner.
	c.ReconstructMacroblock(interMB(0, 0, Single{MV: Vector{-1000, -1000}}, nil))
	ref, cur := c.Picture(i).Buf, c.Picture(p).Buf
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			require.Equal(t, sample(ref, 0, 0, 0), sample(cur, 0, x, y))
		}
	}
	// Far right: each row replicates its last sample.
	c.ReconstructMacroblock(interMB(1, 1, Single{MV: Vector{1000, 0}}, nil))
	for y := 16; y < 32; y++ {
		for x := 16; x < 32; x++ {
			require.Equal(t, sample(ref, 0, 31, y), sample(cur, 0, x, y))
		}
	}
}

func TestBidirectionalAverage(t *testing.T) {
	c := newTestContext(t, nil, 32, 32)
	i := startFrame(t, c, TypeI)
	fill(c, i, 10)
	c.FrameEnd()
	p := startFrame(t, c, TypeP)
	fill(c, p, 21)
	c.FrameEnd()

	b := startFrame(t, c, TypeB)
	c.ReconstructMacroblock(interMB(0, 0, Single{}, Single{}))
	c.ReconstructMacroblock(interMB(1, 0, nil, Single{}))
	c.ReconstructMacroblock(interMB(0, 1, Single{}, nil))
	buf := c.Picture(b).Buf
	require.Equal(t, byte(16), sample(buf, 0, 3, 3))
	require.Equal(t, byte(21), sample(buf, 0, 20, 3))
	require.Equal(t, byte(10), sample(buf, 0, 3, 20))
}

func fill(c *Context, h Handle, v byte) {
	c.store.Fill(h, v, v)
}

// randomRun reconstructs an I, P, B sequence and a field coded P picture
// with random vectors and returns the samples of every predicted picture.
func randomRun(t *testing.T, seed int64, lowres int) [][]byte {
	rng := rand.New(rand.NewSource(seed))
	c := newTestContext(t, &Options{Lowres: lowres}, 32, 32)
	i := startFrame(t, c, TypeI)
	paint(c.Picture(i).Buf)
	c.FrameEnd()

	var out [][]byte
	collect := func(h Handle) {
		for pl := 0; pl < 3; pl++ {
			out = append(out, visible(c.Picture(h).Buf, pl))
		}
	}
	frame := func(typ PictureType, rows int) {
		for y := 0; y < rows; y++ {
			for x := 0; x < 2; x++ {
				fwd := randomPartition(rng, c.Params.Structure == FramePicture)
				var bwd Partition
				if typ == TypeB {
					bwd = randomPartition(rng, true)
				}
				mb := interMB(x, y, fwd, bwd)
				mb.InterlacedDCT = rng.Intn(2) == 1
				mb.Blocks[0][0] = int16(rng.Intn(64) - 32)
				mb.LastIndex[0] = 0
				c.ReconstructMacroblock(mb)
			}
		}
	}

	p := startFrame(t, c, TypeP)
	frame(TypeP, 2)
	c.FrameEnd()
	collect(p)

	b := startFrame(t, c, TypeB)
	frame(TypeB, 2)
	c.FrameEnd()
	collect(b)

	c.Params.Structure = TopField
	f := startFrame(t, c, TypeP)
	frame(TypeP, 1)
	c.Params.Structure = BottomField
	require.NoError(t, c.StartSecondField())
	frame(TypeP, 1)
	c.FrameEnd()
	collect(f)
	return out
}

func TestRandomVectorsDeterministic(t *testing.T) {
	for _, lowres := range []int{0, 1, 3} {
		for seed := int64(1); seed <= 8; seed++ {
			a := randomRun(t, seed, lowres)
			b := randomRun(t, seed, lowres)
			require.Equal(t, a, b, "lowres %d seed %d", lowres, seed)
		}
	}
}

func TestLowestReferencedRow(t *testing.T) {
	c := newTestContext(t, nil, 64, 64)
	startFrame(t, c, TypeI)

	tests := []struct {
		name string
		y    int
		part Partition
		qpel bool
		want int
	}{
		{"zero", 1, Single{}, false, 1},
		{"down one row", 1, Single{MV: Vector{0, 32}}, false, 2},
		{"just inside", 1, Single{MV: Vector{0, 1}}, false, 2},
		{"quarter sample", 1, Single{MV: Vector{0, 64}}, true, 2},
		{"up counts too", 2, Quad{MV: [4]Vector{{0, -40}}}, false, 3},
		{"clipped", 3, Single{MV: Vector{0, 1000}}, false, 3},
		{"dual prime", 0, DualPrime{}, false, 3},
		{"field", 0, Field{}, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Params.QuarterSample = tt.qpel
			mb := &Macroblock{Y: tt.y}
			require.Equal(t, tt.want, c.lowestReferencedRow(mb, tt.part))
		})
	}

	c.Params.QuarterSample = false
	c.Params.Structure = TopField
	require.Equal(t, 3, c.lowestReferencedRow(&Macroblock{}, Single{}))
}

// predictFrom decodes a painted I picture and starts a P picture of the
// given structure. It returns the context and the reference handle.
func predictFrom(t *testing.T, w, h, structure int) (*Context, Handle) {
	c := newTestContext(t, nil, w, h)
	i := startFrame(t, c, TypeI)
	paint(c.Picture(i).Buf)
	c.FrameEnd()
	c.Params.Structure = structure
	startFrame(t, c, TypeP)
	return c, i
}

// mbSize returns the size of one macroblock in plane pl.
func mbSize(c *Context, pl int) (w, h int) {
	if pl == 0 {
		return 16, 16
	}
	return 16 >> c.chromaShiftX, 16 >> c.chromaShiftY
}

func TestFieldSelectOnFramePictures(t *testing.T) {
	tests := []struct {
		name   string
		sel    [2]int
		refRow func(y int) int
	}{
		{"same parity", [2]int{0, 1}, func(y int) int { return y }},
		{"swapped", [2]int{1, 0}, func(y int) int { return y ^ 1 }},
		{"top only", [2]int{0, 0}, func(y int) int { return y &^ 1 }},
		{"bottom only", [2]int{1, 1}, func(y int) int { return y | 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, i := predictFrom(t, 32, 32, FramePicture)
			c.ReconstructMacroblock(interMB(0, 0, Field{FieldSelect: tt.sel}, nil))
			ref, cur := c.Picture(i).Buf, c.Picture(c.Roles().Current).Buf
			for pl := 0; pl < 3; pl++ {
				bw, bh := mbSize(c, pl)
				for y := 0; y < bh; y++ {
					for x := 0; x < bw; x++ {
						require.Equal(t, sample(ref, pl, x, tt.refRow(y)), sample(cur, pl, x, y), "plane %d (%d,%d)", pl, x, y)
					}
				}
			}
		})
	}
}

func TestHalfFieldLowerHalfChroma(t *testing.T) {
	c, i := predictFrom(t, 32, 32, TopField)
	part := HalfField{MV: [2]Vector{{}, {0, -1}}}
	c.ReconstructMacroblock(interMB(0, 0, part, nil))
	ref, cur := c.Picture(i).Buf, c.Picture(c.Roles().Current).Buf

	// Half a luma row up from field row 8.
	for y := 8; y < 16; y++ {
		want := (int(sample(ref, 0, 3, 2*y-2)) + int(sample(ref, 0, 3, 2*y)) + 1) >> 1
		require.Equal(t, byte(want), sample(cur, 0, 3, 2*y), "luma field row %d", y)
	}
	// The chroma vector of 15 half rows lands between field rows 3 and 4.
	for y := 4; y < 8; y++ {
		for pl := 1; pl < 3; pl++ {
			want := (int(sample(ref, pl, 5, 2*y-2)) + int(sample(ref, pl, 5, 2*y)) + 1) >> 1
			require.Equal(t, byte(want), sample(cur, pl, 5, 2*y), "plane %d field row %d", pl, y)
		}
	}
	// Frame rows 6 and 8: 3*5 + 12 + 20 and 3*5 + 16 + 20 average to 49.
	require.Equal(t, byte(49), sample(cur, 1, 5, 8))
}

func TestSecondFieldOppositeParity(t *testing.T) {
	const last = 200
	tests := []struct {
		name string
		part Partition
		want func(top int) int
	}{
		{"field", Field{FieldSelect: [2]int{0, 0}}, func(top int) int { return top }},
		{"half field", HalfField{FieldSelect: [2]int{0, 0}}, func(top int) int { return top }},
		{"dual prime", DualPrime{}, func(top int) int { return (top + last + 1) >> 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, nil, 32, 32)
			i := startFrame(t, c, TypeI)
			fill(c, i, last)
			c.FrameEnd()

			c.Params.Structure = TopField
			h := startFrame(t, c, TypeP)
			paint(c.Picture(h).Buf)
			c.Params.Structure = BottomField
			require.NoError(t, c.StartSecondField())
			c.ReconstructMacroblock(interMB(0, 0, tt.part, nil))

			cur := c.Picture(h).Buf
			for pl := 0; pl < 3; pl++ {
				bw, bh := mbSize(c, pl)
				for y := 1; y < bh; y += 2 {
					for x := 0; x < bw; x++ {
						top := int(sample(cur, pl, x, y-1))
						require.Equal(t, byte(tt.want(top)), sample(cur, pl, x, y), "plane %d (%d,%d)", pl, x, y)
					}
				}
			}
		})
	}

	// The first field reads the opposite parity from the last picture.
	c := newTestContext(t, nil, 32, 32)
	i := startFrame(t, c, TypeI)
	fill(c, i, last)
	c.FrameEnd()
	c.Params.Structure = TopField
	h := startFrame(t, c, TypeP)
	c.ReconstructMacroblock(interMB(0, 0, Field{FieldSelect: [2]int{1, 1}}, nil))
	require.Equal(t, byte(last), sample(c.Picture(h).Buf, 0, 4, 6))
}

func TestDualPrimeAveragesFields(t *testing.T) {
	c, _ := predictFrom(t, 32, 32, FramePicture)
	// The second pass moves the top field prediction one field row down.
	part := DualPrime{MV: [4]Vector{{}, {}, {0, 2}, {}}}
	c.ReconstructMacroblock(interMB(0, 0, part, nil))
	cur := c.Picture(c.Roles().Current).Buf

	// Offsets from 3x + 2y + 20*plane for even and odd rows.
	want := [3][2]int{{3, -1}, {2, -1}, {2, -1}}
	for pl := 0; pl < 3; pl++ {
		bw, bh := mbSize(c, pl)
		for y := 0; y < bh; y++ {
			for x := 0; x < bw; x++ {
				v := 3*x + 2*y + 20*pl + want[pl][y&1]
				require.Equal(t, byte(v), sample(cur, pl, x, y), "plane %d (%d,%d)", pl, x, y)
			}
		}
	}
}

func TestQuadClampsToCodedWidth(t *testing.T) {
	// 40 samples wide: the planes are padded to 48.
	c := newTestContext(t, nil, 40, 32)
	c.Params.Codec = CodecMPEG4
	i := startFrame(t, c, TypeI)
	paint(c.Picture(i).Buf)
	c.FrameEnd()
	h := startFrame(t, c, TypeP)

	far := Vector{1000, 0}
	c.ReconstructMacroblock(interMB(2, 0, Quad{MV: [4]Vector{far, far, far, far}}, nil))
	ref, cur := c.Picture(i).Buf, c.Picture(h).Buf
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			require.Equal(t, sample(ref, 0, 40+x%8, y), sample(cur, 0, 32+x, y), "luma (%d,%d)", x, y)
		}
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			require.Equal(t, sample(ref, 1, min(20+x, 23), y), sample(cur, 1, 16+x, y), "chroma (%d,%d)", x, y)
		}
	}
}
