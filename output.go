package mpv

import (
	"errors"
	"image"

	"github.com/deepteams/mpv/internal/picture"
)

// ErrNoPicture is returned by Output when there is no picture to hand out.
var ErrNoPicture = errors.New("mpv: no picture")

// Frame is a reference to decoded planes. The planes stay valid until
// Release, even after the context reuses the slot.
type Frame struct {
	Width, Height      int
	ChromaFormat       ChromaFormat
	Type               PictureType
	KeyFrame           bool
	CodedPictureNumber int

	buf    *picture.Buffer
	planes [3]picture.Plane
}

// Output returns a reference to the current picture.
func (c *Context) Output() (*Frame, error) {
	return c.frameOf(c.store.Roles.Current)
}

func (c *Context) frameOf(h Handle) (*Frame, error) {
	pic := c.store.Get(h)
	if !pic.Populated() {
		return nil, ErrNoPicture
	}
	round := 1<<c.opts.Lowres - 1
	return &Frame{
		Width:              (c.Params.Width + round) >> c.opts.Lowres,
		Height:             (c.Params.Height + round) >> c.opts.Lowres,
		ChromaFormat:       c.Params.ChromaFormat,
		Type:               pic.Type,
		KeyFrame:           pic.KeyFrame,
		CodedPictureNumber: pic.CodedPictureNumber,
		buf:                pic.Buf.Ref(),
		planes:             pic.Buf.Planes,
	}, nil
}

// Release drops the frame's reference. The frame must not be used after.
func (f *Frame) Release() {
	if f.buf != nil {
		f.buf.Unref()
		f.buf = nil
	}
}

// Plane returns the samples, offset of the first visible sample and stride
// of plane i.
func (f *Frame) Plane(i int) (pix []byte, off, stride int) {
	p := &f.planes[i]
	return p.Pix, p.Offset, p.Stride
}

// YCbCr returns an image sharing the frame's samples.
func (f *Frame) YCbCr() *image.YCbCr {
	ratio := image.YCbCrSubsampleRatio420
	switch f.ChromaFormat {
	case Chroma422:
		ratio = image.YCbCrSubsampleRatio422
	case Chroma444:
		ratio = image.YCbCrSubsampleRatio444
	}
	y, cb, cr := &f.planes[0], &f.planes[1], &f.planes[2]
	return &image.YCbCr{
		Y:              y.Pix[y.Offset:],
		Cb:             cb.Pix[cb.Offset:],
		Cr:             cr.Pix[cr.Offset:],
		YStride:        y.Stride,
		CStride:        cb.Stride,
		SubsampleRatio: ratio,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
}
