package dsp

import (
	"math"
	"testing"
)

func TestIDCTZero(t *testing.T) {
	var b Block
	dst := make([]byte, 64)
	for i := range dst {
		dst[i] = byte(i)
	}
	IDCTAdd(dst, 0, 8, &b)
	for i := range dst {
		if dst[i] != byte(i) {
			t.Fatalf("sample %d changed: %d", i, dst[i])
		}
	}
}

func TestIDCTDCOnly(t *testing.T) {
	tests := []struct {
		dc   int16
		want int
	}{
		{80, 10},
		{8, 1},
		{-80, -10},
		{0, 0},
	}
	for _, tt := range tests {
		var b Block
		b[0] = tt.dc
		IDCT(&b)
		for i, v := range b {
			if int(v) != tt.want {
				t.Fatalf("dc=%d: sample %d = %d, want %d", tt.dc, i, v, tt.want)
			}
		}
	}
}

func TestIDCTPutClips(t *testing.T) {
	var b Block
	b[0] = 4000
	dst := make([]byte, 8*10)
	IDCTPut(dst, 8, 8, &b)
	for i := 0; i < 8; i++ {
		if dst[i] != 0 {
			t.Fatalf("row above block written")
		}
	}
	for i := 8; i < 72; i++ {
		if dst[i] != 255 {
			t.Fatalf("sample %d = %d, want 255", i, dst[i])
		}
	}
}

// TestIDCTAccuracy compares against a floating-point reference for a single
// AC basis function.
func TestIDCTAccuracy(t *testing.T) {
	for _, pos := range []int{1, 8, 9, 18, 63} {
		var b Block
		b[pos] = 64
		IDCT(&b)
		u, v := pos%8, pos/8
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				cu, cv := 1.0, 1.0
				if u == 0 {
					cu = 1 / math.Sqrt2
				}
				if v == 0 {
					cv = 1 / math.Sqrt2
				}
				ref := 0.25 * cu * cv * 64 *
					math.Cos(float64(2*x+1)*float64(u)*math.Pi/16) *
					math.Cos(float64(2*y+1)*float64(v)*math.Pi/16)
				if d := math.Abs(float64(b[y*8+x]) - ref); d > 1 {
					t.Fatalf("coef %d at (%d,%d): got %d, ref %.2f", pos, x, y, b[y*8+x], ref)
				}
			}
		}
	}
}

func TestIDCTLowres(t *testing.T) {
	var b Block
	b[0] = 80
	dst := make([]byte, 4*4)
	for i := range dst {
		dst[i] = 100
	}
	IDCTAddLowres(dst, 0, 4, &b, 1)
	for i, v := range dst {
		if v != 110 {
			t.Fatalf("sample %d = %d, want 110", i, v)
		}
	}

	var c Block
	c[0] = 80
	one := []byte{0}
	IDCTPutLowres(one, 0, 1, &c, 3)
	if one[0] != 10 {
		t.Errorf("lowres 3: got %d, want 10", one[0])
	}
}
