package picture

import (
	"fmt"

	"github.com/deepteams/mpv/internal/pool"
)

// Handle addresses a slot of a Store. Handles are stable across Stores, so
// two contexts of a pipeline can refer to the same picture by index.
type Handle int

// None is the empty handle.
const None Handle = -1

// Roles holds the reference roles of a decode context.
type Roles struct {
	Current Handle
	Last    Handle
	Next    Handle

	// Pending is a slot allocated ahead of FrameStart (header pre-parse)
	// that the next frame will decode into.
	Pending Handle
}

// EmptyRoles returns a role set with every role empty.
func EmptyRoles() Roles {
	return Roles{Current: None, Last: None, Next: None, Pending: None}
}

// Has reports whether h fills any role.
func (r *Roles) Has(h Handle) bool {
	return h != None && (h == r.Current || h == r.Last || h == r.Next || h == r.Pending)
}

// Distinct reports whether the populated roles among Current, Last and Next
// refer to different slots.
func (r *Roles) Distinct() bool {
	hs := [3]Handle{r.Current, r.Last, r.Next}
	for i := 0; i < len(hs); i++ {
		for j := i + 1; j < len(hs); j++ {
			if hs[i] != None && hs[i] == hs[j] {
				return false
			}
		}
	}
	return true
}

// Geometry describes the planes of a picture.
type Geometry struct {
	Width, Height              int // coded luma size
	ChromaShiftX, ChromaShiftY int
	Lowres                     int
}

// MBSize returns the picture size in macroblocks.
func (g Geometry) MBSize() (w, h int) {
	return (g.Width + 15) >> 4, (g.Height + 15) >> 4
}

// Strides returns the luma and chroma line sizes AllocateStorage uses.
func (g Geometry) Strides() (luma, chroma int) {
	mbw, _ := g.MBSize()
	w := (mbw * 16) >> g.Lowres
	luma = w + 2*EdgeWidth
	chroma = (w >> g.ChromaShiftX) + 2*(EdgeWidth>>g.ChromaShiftX)
	return luma, chroma
}

// Store is the fixed-size picture pool of one decode context. It is not
// safe for concurrent use; callers serialize pool management.
type Store struct {
	pics  [MaxCount]Picture
	Roles Roles
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{Roles: EmptyRoles()}
}

// Get returns the picture in slot h, or nil for None.
func (s *Store) Get(h Handle) *Picture {
	if h == None {
		return nil
	}
	return &s.pics[h]
}

// unused reports whether slot i can be handed out by Acquire.
func (s *Store) unused(i int) bool {
	p := &s.pics[i]
	if s.Roles.Has(Handle(i)) {
		return false
	}
	return p.Buf == nil || p.NeedsRealloc
}

// Acquire returns a free slot. Slots holding storage of an older geometry
// are released first.
func (s *Store) Acquire() (Handle, error) {
	for i := range s.pics {
		if s.unused(i) {
			if s.pics[i].NeedsRealloc {
				s.pics[i].reset()
			}
			return Handle(i), nil
		}
	}
	return None, ErrExhausted
}

// Release drops the slot's storage and metadata. Role fields pointing at
// the slot are left to the caller.
func (s *Store) Release(h Handle) {
	if h == None {
		return
	}
	s.pics[h].reset()
}

// ReleaseUnreferenced releases every populated slot that fills no role and
// is either not marked as a reference or sized for an older geometry.
func (s *Store) ReleaseUnreferenced() {
	for i := range s.pics {
		p := &s.pics[i]
		if p.Buf != nil && (p.Reference == 0 || p.NeedsRealloc) && !s.Roles.Has(Handle(i)) {
			p.reset()
		}
	}
}

// ReleaseAll empties every slot and every role.
func (s *Store) ReleaseAll() {
	for i := range s.pics {
		s.pics[i].reset()
	}
	s.Roles = EmptyRoles()
}

// MarkRealloc flags every slot for reallocation.
func (s *Store) MarkRealloc() {
	for i := range s.pics {
		s.pics[i].NeedsRealloc = true
	}
}

// AllocateStorage gives slot h fresh planes and side tables for g. If
// stride is non-zero it is the luma line size the context already uses;
// a mismatch fails with ErrStrideChanged.
func (s *Store) AllocateStorage(h Handle, g Geometry, stride int) error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, g.Width, g.Height)
	}
	ls, cs := g.Strides()
	if stride != 0 && stride != ls {
		return fmt.Errorf("%w: %d != %d", ErrStrideChanged, ls, stride)
	}

	p := &s.pics[h]
	p.reset()

	mbw, mbh := g.MBSize()
	w := (mbw * 16) >> g.Lowres
	ht := (mbh * 16) >> g.Lowres

	buf := newBuffer()
	buf.Planes[0] = newPlane(w, ht, ls, EdgeWidth, EdgeWidth)
	cw, ch := w>>g.ChromaShiftX, ht>>g.ChromaShiftY
	ex, ey := EdgeWidth>>g.ChromaShiftX, EdgeWidth>>g.ChromaShiftY
	for i := 1; i < 3; i++ {
		buf.Planes[i] = newPlane(cw, ch, cs, ex, ey)
	}
	p.Buf = buf
	p.Tables = NewTables(mbw, mbh)
	return nil
}

func newPlane(w, h, stride, ex, ey int) Plane {
	return Plane{
		Pix:    pool.Get(stride * (h + 2*ey)),
		Stride: stride,
		Width:  w,
		Height: h,
		Offset: ey*stride + ex,
	}
}

// Fill sets every sample of slot h, borders included, to luma for plane 0
// and chroma for planes 1 and 2.
func (s *Store) Fill(h Handle, luma, chroma byte) {
	b := s.pics[h].Buf
	for i := range b.Planes {
		v := chroma
		if i == 0 {
			v = luma
		}
		pix := b.Planes[i].Pix
		for j := range pix {
			pix[j] = v
		}
	}
}

// SyncFrom makes s mirror src: every slot drops its own storage and takes a
// reference to src's buffer for the same index. Slots empty in src only
// copy their side tables. Roles are copied as indices.
func (s *Store) SyncFrom(src *Store) {
	for i := range s.pics {
		s.pics[i].reset()
		sp := &src.pics[i]
		if sp.Buf != nil {
			s.pics[i] = *sp
			s.pics[i].Buf = sp.Buf.Ref()
			continue
		}
		s.pics[i].Tables = sp.Tables
		s.pics[i].NeedsRealloc = sp.NeedsRealloc
	}
	s.Roles = src.Roles
}

// InUse returns the number of populated slots.
func (s *Store) InUse() int {
	n := 0
	for i := range s.pics {
		if s.pics[i].Buf != nil {
			n++
		}
	}
	return n
}
