package dsp

// Integer 8x8 inverse DCT with the coefficients used by MPEG decoders
// (cos(k*pi/16) * sqrt(2) * 2^14 rounded).
const (
	w1 = 22725
	w2 = 21407
	w3 = 19266
	w4 = 16383
	w5 = 12873
	w6 = 8867
	w7 = 4520

	rowShift = 11
	colShift = 20
	dcShift  = 3
)

func idctRow(r []int16) {
	if r[1]|r[2]|r[3]|r[4]|r[5]|r[6]|r[7] == 0 {
		v := r[0] << dcShift
		for i := range r[:8] {
			r[i] = v
		}
		return
	}

	x0, x1, x2, x3 := int(r[0]), int(r[1]), int(r[2]), int(r[3])
	x4, x5, x6, x7 := int(r[4]), int(r[5]), int(r[6]), int(r[7])

	a0 := w4*x0 + (1 << (rowShift - 1))
	a1, a2, a3 := a0, a0, a0
	a0 += w2 * x2
	a1 += w6 * x2
	a2 -= w6 * x2
	a3 -= w2 * x2

	b0 := w1*x1 + w3*x3
	b1 := w3*x1 - w7*x3
	b2 := w5*x1 - w1*x3
	b3 := w7*x1 - w5*x3

	if x4|x5|x6|x7 != 0 {
		a0 += w4*x4 + w6*x6
		a1 += -w4*x4 - w2*x6
		a2 += -w4*x4 + w2*x6
		a3 += w4*x4 - w6*x6

		b0 += w5*x5 + w7*x7
		b1 += -w1*x5 - w5*x7
		b2 += w7*x5 + w3*x7
		b3 += w3*x5 - w1*x7
	}

	r[0] = int16((a0 + b0) >> rowShift)
	r[7] = int16((a0 - b0) >> rowShift)
	r[1] = int16((a1 + b1) >> rowShift)
	r[6] = int16((a1 - b1) >> rowShift)
	r[2] = int16((a2 + b2) >> rowShift)
	r[5] = int16((a2 - b2) >> rowShift)
	r[3] = int16((a3 + b3) >> rowShift)
	r[4] = int16((a3 - b3) >> rowShift)
}

func idctCol(b *Block, c int) {
	x0, x1, x2, x3 := int(b[c]), int(b[c+8]), int(b[c+16]), int(b[c+24])
	x4, x5, x6, x7 := int(b[c+32]), int(b[c+40]), int(b[c+48]), int(b[c+56])

	a0 := w4 * (x0 + ((1 << (colShift - 1)) / w4))
	a1, a2, a3 := a0, a0, a0
	a0 += w2 * x2
	a1 += w6 * x2
	a2 -= w6 * x2
	a3 -= w2 * x2

	b0 := w1*x1 + w3*x3
	b1 := w3*x1 - w7*x3
	b2 := w5*x1 - w1*x3
	b3 := w7*x1 - w5*x3

	if x4 != 0 {
		a0 += w4 * x4
		a1 -= w4 * x4
		a2 -= w4 * x4
		a3 += w4 * x4
	}
	if x5 != 0 {
		b0 += w5 * x5
		b1 -= w1 * x5
		b2 += w7 * x5
		b3 += w3 * x5
	}
	if x6 != 0 {
		a0 += w6 * x6
		a1 -= w2 * x6
		a2 += w2 * x6
		a3 -= w6 * x6
	}
	if x7 != 0 {
		b0 += w7 * x7
		b1 -= w5 * x7
		b2 += w3 * x7
		b3 -= w1 * x7
	}

	b[c] = int16((a0 + b0) >> colShift)
	b[c+8] = int16((a1 + b1) >> colShift)
	b[c+16] = int16((a2 + b2) >> colShift)
	b[c+24] = int16((a3 + b3) >> colShift)
	b[c+32] = int16((a3 - b3) >> colShift)
	b[c+40] = int16((a2 - b2) >> colShift)
	b[c+48] = int16((a1 - b1) >> colShift)
	b[c+56] = int16((a0 - b0) >> colShift)
}

// IDCT transforms b in place from coefficients to spatial residuals.
func IDCT(b *Block) {
	for i := 0; i < 64; i += 8 {
		idctRow(b[i : i+8])
	}
	for c := 0; c < 8; c++ {
		idctCol(b, c)
	}
}

// IDCTPut transforms b and stores the clipped result at dst[off:] with the
// given stride. b is left holding the spatial residuals.
func IDCTPut(dst []byte, off, stride int, b *Block) {
	IDCT(b)
	for y := 0; y < 8; y++ {
		d := dst[off : off+8]
		for x := range d {
			d[x] = Clip8b(int(b[y*8+x]))
		}
		off += stride
	}
}

// IDCTAdd transforms b and adds the result to dst[off:] with clipping.
func IDCTAdd(dst []byte, off, stride int, b *Block) {
	IDCT(b)
	for y := 0; y < 8; y++ {
		d := dst[off : off+8]
		for x := range d {
			d[x] = Clip8b(int(d[x]) + int(b[y*8+x]))
		}
		off += stride
	}
}

// decimate averages the spatial block down to (8>>lowres) x (8>>lowres)
// samples and hands each one to emit.
func decimate(b *Block, lowres int, emit func(x, y, v int)) {
	n := 1 << lowres
	size := 8 >> lowres
	round := (n * n) >> 1
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			sum := 0
			for j := 0; j < n; j++ {
				row := (y*n + j) * 8
				for i := 0; i < n; i++ {
					sum += int(b[row+x*n+i])
				}
			}
			emit(x, y, (sum+round)>>(2*lowres))
		}
	}
}

// IDCTPutLowres is IDCTPut for reduced-resolution decoding: the 8x8 residual
// is averaged down to (8>>lowres) samples per side.
func IDCTPutLowres(dst []byte, off, stride int, b *Block, lowres int) {
	if lowres == 0 {
		IDCTPut(dst, off, stride, b)
		return
	}
	IDCT(b)
	decimate(b, lowres, func(x, y, v int) {
		dst[off+y*stride+x] = Clip8b(v)
	})
}

// IDCTAddLowres is IDCTAdd for reduced-resolution decoding.
func IDCTAddLowres(dst []byte, off, stride int, b *Block, lowres int) {
	if lowres == 0 {
		IDCTAdd(dst, off, stride, b)
		return
	}
	IDCT(b)
	decimate(b, lowres, func(x, y, v int) {
		i := off + y*stride + x
		dst[i] = Clip8b(int(dst[i]) + v)
	})
}
