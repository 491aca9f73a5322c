package dsp

// QuantParams carries what a dequantizer needs besides the block itself.
type QuantParams struct {
	QScale  int
	DCScale int

	IntraMatrix *[64]uint16
	InterMatrix *[64]uint16

	// AdvancedIntra disables the DC scale and rounding offset of H.263 intra
	// blocks (Annex I).
	AdvancedIntra bool
}

// DequantFunc rescales quantized levels in place. Blocks are in raster
// order; only non-zero levels are touched.
type DequantFunc func(b *Block, qp *QuantParams)

// Dequantizer pairs the intra and inter rules of one bitstream family.
type Dequantizer struct {
	Intra, Inter DequantFunc
}

// DefaultIntraMatrix is the MPEG-1/2 default intra quantiser matrix in
// raster order.
var DefaultIntraMatrix = [64]uint16{
	8, 16, 19, 22, 26, 27, 29, 34,
	16, 16, 22, 24, 27, 29, 34, 37,
	19, 22, 26, 27, 29, 34, 34, 38,
	22, 22, 26, 27, 29, 34, 37, 40,
	22, 26, 27, 29, 32, 35, 40, 48,
	26, 27, 29, 32, 35, 40, 48, 58,
	26, 27, 29, 34, 38, 46, 56, 69,
	27, 29, 35, 38, 46, 56, 69, 83,
}

// DefaultInterMatrix is the flat non-intra matrix.
var DefaultInterMatrix = func() (m [64]uint16) {
	for i := range m {
		m[i] = 16
	}
	return m
}()

var (
	MPEG1Dequant = Dequantizer{Intra: mpeg1Intra, Inter: mpeg1Inter}
	MPEG2Dequant = Dequantizer{Intra: mpeg2Intra, Inter: mpeg2Inter}
	H263Dequant  = Dequantizer{Intra: h263Intra, Inter: h263Inter}
)

func intraMatrix(qp *QuantParams) *[64]uint16 {
	if qp.IntraMatrix != nil {
		return qp.IntraMatrix
	}
	return &DefaultIntraMatrix
}

func interMatrix(qp *QuantParams) *[64]uint16 {
	if qp.InterMatrix != nil {
		return qp.InterMatrix
	}
	return &DefaultInterMatrix
}

// oddify forces the magnitude odd (MPEG-1 mismatch control) keeping the sign.
func oddify(level int) int {
	if level < 0 {
		return -((-level - 1) | 1)
	}
	return (level - 1) | 1
}

func mpeg1Intra(b *Block, qp *QuantParams) {
	m := intraMatrix(qp)
	b[0] = int16(int(b[0]) * qp.DCScale)
	for i := 1; i < 64; i++ {
		level := int(b[i])
		if level == 0 {
			continue
		}
		if level < 0 {
			level = -((-level * qp.QScale * int(m[i])) >> 3)
		} else {
			level = (level * qp.QScale * int(m[i])) >> 3
		}
		b[i] = int16(oddify(level))
	}
}

func mpeg1Inter(b *Block, qp *QuantParams) {
	m := interMatrix(qp)
	for i := 0; i < 64; i++ {
		level := int(b[i])
		if level == 0 {
			continue
		}
		if level < 0 {
			level = -(((-level<<1 + 1) * qp.QScale * int(m[i])) >> 4)
		} else {
			level = (((level<<1 + 1) * qp.QScale * int(m[i])) >> 4)
		}
		b[i] = int16(oddify(level))
	}
}

func mpeg2Intra(b *Block, qp *QuantParams) {
	m := intraMatrix(qp)
	q := qp.QScale << 1
	b[0] = int16(int(b[0]) * qp.DCScale)
	for i := 1; i < 64; i++ {
		level := int(b[i])
		if level == 0 {
			continue
		}
		if level < 0 {
			b[i] = int16(-((-level * q * int(m[i])) >> 4))
		} else {
			b[i] = int16((level * q * int(m[i])) >> 4)
		}
	}
}

func mpeg2Inter(b *Block, qp *QuantParams) {
	m := interMatrix(qp)
	q := qp.QScale << 1
	sum := -1
	for i := 0; i < 64; i++ {
		level := int(b[i])
		if level == 0 {
			continue
		}
		if level < 0 {
			level = -(((-level<<1 + 1) * q * int(m[i])) >> 5)
		} else {
			level = ((level<<1 + 1) * q * int(m[i])) >> 5
		}
		b[i] = int16(level)
		sum += level
	}
	b[63] ^= int16(sum & 1)
}

func h263Intra(b *Block, qp *QuantParams) {
	qmul := qp.QScale << 1
	qadd := (qp.QScale - 1) | 1
	if qp.AdvancedIntra {
		qadd = 0
	} else {
		b[0] = int16(int(b[0]) * qp.DCScale)
	}
	for i := 1; i < 64; i++ {
		level := int(b[i])
		if level == 0 {
			continue
		}
		if level < 0 {
			b[i] = int16(level*qmul - qadd)
		} else {
			b[i] = int16(level*qmul + qadd)
		}
	}
}

func h263Inter(b *Block, qp *QuantParams) {
	qmul := qp.QScale << 1
	qadd := (qp.QScale - 1) | 1
	for i := 0; i < 64; i++ {
		level := int(b[i])
		if level == 0 {
			continue
		}
		if level < 0 {
			b[i] = int16(level*qmul - qadd)
		} else {
			b[i] = int16(level*qmul + qadd)
		}
	}
}
