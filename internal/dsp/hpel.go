package dsp

// Half-pel interpolation with rounding: two-tap phases use (a+b+1)>>1 and
// the centre phase uses (a+b+c+d+2)>>2. The average variants combine the
// prediction with the existing destination as (d+p+1)>>1.

func putPixels(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		copy(dst[dOff:dOff+w], src[sOff:sOff+w])
		dOff += dStride
		sOff += sStride
	}
}

func putPixelsX2(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s := src[sOff : sOff+w+1]
		for x := range d {
			d[x] = uint8((int(s[x]) + int(s[x+1]) + 1) >> 1)
		}
		dOff += dStride
		sOff += sStride
	}
}

func putPixelsY2(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s0 := src[sOff : sOff+w]
		s1 := src[sOff+sStride : sOff+sStride+w]
		for x := range d {
			d[x] = uint8((int(s0[x]) + int(s1[x]) + 1) >> 1)
		}
		dOff += dStride
		sOff += sStride
	}
}

func putPixelsXY2(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s0 := src[sOff : sOff+w+1]
		s1 := src[sOff+sStride : sOff+sStride+w+1]
		for x := range d {
			d[x] = uint8((int(s0[x]) + int(s0[x+1]) + int(s1[x]) + int(s1[x+1]) + 2) >> 2)
		}
		dOff += dStride
		sOff += sStride
	}
}

func avgPixels(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s := src[sOff : sOff+w]
		for x := range d {
			d[x] = uint8((int(d[x]) + int(s[x]) + 1) >> 1)
		}
		dOff += dStride
		sOff += sStride
	}
}

func avgPixelsX2(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s := src[sOff : sOff+w+1]
		for x := range d {
			p := (int(s[x]) + int(s[x+1]) + 1) >> 1
			d[x] = uint8((int(d[x]) + p + 1) >> 1)
		}
		dOff += dStride
		sOff += sStride
	}
}

func avgPixelsY2(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s0 := src[sOff : sOff+w]
		s1 := src[sOff+sStride : sOff+sStride+w]
		for x := range d {
			p := (int(s0[x]) + int(s1[x]) + 1) >> 1
			d[x] = uint8((int(d[x]) + p + 1) >> 1)
		}
		dOff += dStride
		sOff += sStride
	}
}

func avgPixelsXY2(dst []byte, dOff, dStride int, src []byte, sOff, sStride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[dOff : dOff+w]
		s0 := src[sOff : sOff+w+1]
		s1 := src[sOff+sStride : sOff+sStride+w+1]
		for x := range d {
			p := (int(s0[x]) + int(s0[x+1]) + int(s1[x]) + int(s1[x+1]) + 2) >> 2
			d[x] = uint8((int(d[x]) + p + 1) >> 1)
		}
		dOff += dStride
		sOff += sStride
	}
}
