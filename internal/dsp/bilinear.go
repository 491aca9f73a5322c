package dsp

// Eighth-pel bilinear interpolation. Weights for phase (x, y) are
// A=(8-x)(8-y), B=x(8-y), C=(8-x)y and D=xy with a rounding bias of 32.
// Phases that leave a tap at zero weight never read the corresponding
// sample, so the source only needs (w+1) x (h+1) samples when both phases
// are non-zero.

func bilinear(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h, x, y int, avg bool) {
	a := (8 - x) * (8 - y)
	b := x * (8 - y)
	c := (8 - x) * y
	d := x * y

	store := func(i int, v int) {
		v = (v + 32) >> 6
		if avg {
			v = (int(dst[i]) + v + 1) >> 1
		}
		dst[i] = uint8(v)
	}

	switch {
	case d != 0:
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				s := sOff + i
				store(dOff+i, a*int(src[s])+b*int(src[s+1])+c*int(src[s+sStride])+d*int(src[s+sStride+1]))
			}
			dOff += dStride
			sOff += sStride
		}
	case b+c != 0:
		e := b + c
		step := 1
		if c != 0 {
			step = sStride
		}
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				s := sOff + i
				store(dOff+i, a*int(src[s])+e*int(src[s+step]))
			}
			dOff += dStride
			sOff += sStride
		}
	default:
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				store(dOff+i, a*int(src[sOff+i]))
			}
			dOff += dStride
			sOff += sStride
		}
	}
}

func putBilinear(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h, x, y int) {
	bilinear(dst, dOff, dStride, src, sOff, sStride, w, h, x, y, false)
}

func avgBilinear(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h, x, y int) {
	bilinear(dst, dOff, dStride, src, sOff, sStride, w, h, x, y, true)
}
