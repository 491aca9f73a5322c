package dsp

// EmulatedEdgeMC copies a bw x bh block whose top-left corner sits at
// (srcX, srcY) of a w x h plane into dst, replicating the nearest edge sample
// for every position outside the plane. srcOff addresses sample (0, 0) of the
// plane. dst is written from offset 0 with stride dstStride.
func EmulatedEdgeMC(dst []byte, dstStride int, src []byte, srcOff, srcStride, bw, bh, srcX, srcY, w, h int) {
	for y := 0; y < bh; y++ {
		row := srcOff + clamp(srcY+y, 0, h-1)*srcStride
		d := dst[y*dstStride : y*dstStride+bw]
		x0 := srcX
		// Inner span that needs no clamping.
		lo := clamp(-x0, 0, bw)
		hi := clamp(w-x0, lo, bw)
		left := src[row]
		right := src[row+w-1]
		for x := 0; x < lo; x++ {
			d[x] = left
		}
		if hi > lo {
			copy(d[lo:hi], src[row+x0+lo:row+x0+hi])
		}
		for x := hi; x < bw; x++ {
			d[x] = right
		}
	}
}

// NeedsEmulation reports whether a bw x bh read at (srcX, srcY) leaves the
// w x h plane.
func NeedsEmulation(srcX, srcY, bw, bh, w, h int) bool {
	return srcX < 0 || srcY < 0 || srcX+bw > w || srcY+bh > h
}
