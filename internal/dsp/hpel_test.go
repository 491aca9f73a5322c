package dsp

import "testing"

// refHpel is a direct per-sample rendering of the half-pel rules.
func refHpel(src []byte, stride, x, y, dxy int) int {
	a := int(src[y*stride+x])
	switch dxy {
	case 0:
		return a
	case 1:
		return (a + int(src[y*stride+x+1]) + 1) >> 1
	case 2:
		return (a + int(src[(y+1)*stride+x]) + 1) >> 1
	default:
		return (a + int(src[y*stride+x+1]) + int(src[(y+1)*stride+x]) + int(src[(y+1)*stride+x+1]) + 2) >> 2
	}
}

func testPlane(w, h int, seed uint32) []byte {
	p := make([]byte, w*h)
	for i := range p {
		seed = seed*1664525 + 1013904223
		p[i] = byte(seed >> 24)
	}
	return p
}

func TestHpelPut(t *testing.T) {
	const stride = 24
	src := testPlane(stride, 20, 7)
	k := Default()
	for dxy := 0; dxy < 4; dxy++ {
		for _, size := range []int{8, 16} {
			dst := make([]byte, 16*16)
			k.Put[dxy](dst, 0, 16, src, stride+1, stride, size, size)
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					want := refHpel(src, stride, x+1, y+1, dxy)
					if got := int(dst[y*16+x]); got != want {
						t.Fatalf("dxy=%d size=%d (%d,%d): got %d, want %d", dxy, size, x, y, got, want)
					}
				}
			}
		}
	}
}

func TestHpelAvg(t *testing.T) {
	const stride = 24
	src := testPlane(stride, 20, 11)
	k := Default()
	for dxy := 0; dxy < 4; dxy++ {
		dst := make([]byte, 8*8)
		for i := range dst {
			dst[i] = byte(i * 3)
		}
		orig := append([]byte(nil), dst...)
		k.Avg[dxy](dst, 0, 8, src, 0, stride, 8, 8)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				p := refHpel(src, stride, x, y, dxy)
				want := (int(orig[y*8+x]) + p + 1) >> 1
				if got := int(dst[y*8+x]); got != want {
					t.Fatalf("dxy=%d (%d,%d): got %d, want %d", dxy, x, y, got, want)
				}
			}
		}
	}
}

func TestHpelNoReadPastBlock(t *testing.T) {
	// Full-pel copies must not touch the extra column or row, so a source
	// of exactly w x h samples is enough.
	src := testPlane(8, 8, 3)
	dst := make([]byte, 64)
	Default().Put[0](dst, 0, 8, src, 0, 8, 8, 8)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d: got %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestBilinearMatchesFullPel(t *testing.T) {
	src := testPlane(8, 8, 5)
	dst := make([]byte, 64)
	Default().PutBilinear(dst, 0, 8, src, 0, 8, 8, 8, 0, 0)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d: got %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestBilinearHalfMatchesHpel(t *testing.T) {
	// Phase 4/8 in one direction is the half-sample average.
	const stride = 16
	src := testPlane(stride, 16, 9)
	k := Default()
	for _, tc := range []struct{ x, y, dxy int }{{4, 0, 1}, {0, 4, 2}} {
		got := make([]byte, 64)
		want := make([]byte, 64)
		k.PutBilinear(got, 0, 8, src, 0, stride, 8, 8, tc.x, tc.y)
		k.Put[tc.dxy](want, 0, 8, src, 0, stride, 8, 8)
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("phase (%d,%d) byte %d: got %d, want %d", tc.x, tc.y, i, got[i], want[i])
			}
		}
	}
}

func TestBilinearAvg(t *testing.T) {
	src := []byte{
		0, 64, 0,
		64, 128, 0,
		0, 0, 0,
	}
	dst := []byte{100}
	// Centre phase: (16*0 + 16*64 + 16*64 + 16*128 + 32) >> 6 = 64.
	Default().AvgBilinear(dst, 0, 1, src, 0, 3, 1, 1, 4, 4)
	if dst[0] != 82 {
		t.Errorf("got %d, want 82", dst[0])
	}
}

func TestEmulatedEdgeMC(t *testing.T) {
	// 4x3 plane.
	src := []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	tests := []struct {
		name   string
		sx, sy int
		want   []byte
	}{
		{"inside", 1, 1, []byte{6, 7, 10, 11}},
		{"top-left", -2, -2, []byte{1, 1, 1, 1}},
		{"bottom-right", 3, 2, []byte{12, 12, 12, 12}},
		{"straddle-left", -1, 0, []byte{1, 1, 5, 5}},
		{"straddle-right", 3, 0, []byte{4, 4, 8, 8}},
		{"far-right", 10, 1, []byte{8, 8, 12, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 4)
			EmulatedEdgeMC(dst, 2, src, 0, 4, 2, 2, tt.sx, tt.sy, 4, 3)
			for i := range dst {
				if dst[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", dst, tt.want)
				}
			}
		})
	}
}

func TestNeedsEmulation(t *testing.T) {
	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, false},
		{8, 8, false},
		{9, 8, true},
		{-1, 0, true},
		{0, -1, true},
		{0, 9, true},
	}
	for _, tt := range tests {
		if got := NeedsEmulation(tt.x, tt.y, 8, 8, 16, 16); got != tt.want {
			t.Errorf("NeedsEmulation(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestClip8b(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{-1000, 0}, {-1, 0}, {0, 0}, {128, 128}, {255, 255}, {256, 255}, {1 << 20, 255},
	}
	for _, tt := range tests {
		if got := Clip8b(tt.in); got != tt.want {
			t.Errorf("Clip8b(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
