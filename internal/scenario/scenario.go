// Package scenario describes synthetic streams in YAML and turns them into
// pipeline jobs, so the reconstruction engine can be driven without a
// bitstream parser.
//
// A scenario names the coding parameters of the stream and a group of
// pictures in decode order. Every macroblock is generated from a
// pseudo-random source seeded by the scenario seed, the picture index and
// the macroblock row, so the output does not depend on how many slice or
// frame threads decode it.
package scenario

import (
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/deepteams/mpv"
)

// Motion controls the inter macroblocks of P and B pictures.
type Motion struct {
	// Range bounds each vector component, in the stream's vector units.
	Range int `yaml:"range"`

	// Partitions lists the partition kinds to pick from: single, quad,
	// field and dualprime. Dual prime is only used in P pictures.
	Partitions []string `yaml:"partitions"`

	// Intra is the probability that a macroblock of a P or B picture is
	// intra coded.
	Intra float64 `yaml:"intra"`
}

// Scenario is a synthetic stream.
type Scenario struct {
	Name   string `yaml:"name"`
	Codec  string `yaml:"codec"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Chroma string `yaml:"chroma"`
	Seed   int64  `yaml:"seed"`

	// GOP is the picture types in decode order, for example "IPBB".
	GOP    string `yaml:"gop"`
	Repeat int    `yaml:"repeat"`

	QScale        int  `yaml:"qscale"`
	QuarterSample bool `yaml:"quarter_sample"`
	MPEGQuant     bool `yaml:"mpeg_quant"`
	LowDelay      bool `yaml:"low_delay"`

	Motion Motion `yaml:"motion"`

	// Residual is the probability that a coded block gets a DC
	// coefficient; InterlacedDCT the probability of field ordered
	// transform blocks in a macroblock.
	Residual      float64 `yaml:"residual"`
	InterlacedDCT float64 `yaml:"interlaced_dct"`

	codec  mpv.Codec
	chroma mpv.ChromaFormat
	types  []mpv.PictureType
}

// Load decodes and validates a scenario from r.
func Load(r io.Reader) (*Scenario, error) {
	s := &Scenario{
		Codec:  "mpeg2",
		Chroma: "420",
		GOP:    "IPBB",
		Repeat: 1,
		QScale: 2,
		Motion: Motion{Range: 16, Partitions: []string{"single"}},
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not decode scenario")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads a scenario from the named file.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open scenario")
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return s, nil
}

func (s *Scenario) validate() error {
	codec, ok := parseCodec(s.Codec)
	if !ok {
		return errors.Errorf("unknown codec %q", s.Codec)
	}
	s.codec = codec

	switch s.Chroma {
	case "420":
		s.chroma = mpv.Chroma420
	case "422":
		s.chroma = mpv.Chroma422
	case "444":
		s.chroma = mpv.Chroma444
	default:
		return errors.Errorf("unknown chroma format %q", s.Chroma)
	}

	if s.Width <= 0 || s.Height <= 0 {
		return errors.Errorf("invalid size %dx%d", s.Width, s.Height)
	}
	if s.Repeat < 1 {
		return errors.Errorf("repeat %d must be positive", s.Repeat)
	}
	if s.QScale < 1 || s.QScale > 31 {
		return errors.Errorf("qscale %d out of range [1,31]", s.QScale)
	}
	if s.Motion.Range < 0 {
		return errors.Errorf("motion range %d is negative", s.Motion.Range)
	}
	if len(s.Motion.Partitions) == 0 {
		return errors.New("no motion partitions")
	}
	for _, p := range s.Motion.Partitions {
		switch p {
		case "single", "quad", "field", "dualprime":
		default:
			return errors.Errorf("unknown partition %q", p)
		}
	}

	s.types = s.types[:0]
	for _, r := range strings.ToUpper(s.GOP) {
		switch r {
		case 'I':
			s.types = append(s.types, mpv.TypeI)
		case 'P':
			s.types = append(s.types, mpv.TypeP)
		case 'B':
			s.types = append(s.types, mpv.TypeB)
		default:
			return errors.Errorf("gop: unknown picture type %q", r)
		}
	}
	if len(s.types) == 0 {
		return errors.New("empty gop")
	}
	return nil
}

func parseCodec(name string) (mpv.Codec, bool) {
	for c := mpv.CodecMPEG1; c <= mpv.CodecMSMPEG4; c++ {
		if strings.EqualFold(c.String(), name) {
			return c, true
		}
	}
	return 0, false
}

// Frames returns the number of pictures in the stream.
func (s *Scenario) Frames() int { return len(s.types) * s.Repeat }

// Type returns the coding type of picture i.
func (s *Scenario) Type(i int) mpv.PictureType { return s.types[i%len(s.types)] }

// Params returns the coding parameters of picture i.
func (s *Scenario) Params(i int) mpv.Params {
	return mpv.Params{
		Codec:         s.codec,
		Width:         s.Width,
		Height:        s.Height,
		ChromaFormat:  s.chroma,
		PictureType:   s.Type(i),
		Structure:     mpv.FramePicture,
		FirstField:    true,
		QuarterSample: s.QuarterSample,
		MPEGQuant:     s.MPEGQuant,
		YDCScale:      8,
		CDCScale:      8,
		LowDelay:      s.LowDelay,
	}
}

// Jobs returns one pipeline job per picture, in decode order.
func (s *Scenario) Jobs() []mpv.Job {
	jobs := make([]mpv.Job, s.Frames())
	for i := range jobs {
		jobs[i] = mpv.Job{
			Params:    s.Params(i),
			Interlace: mpv.Interlace{ProgressiveSequence: s.InterlacedDCT == 0, TopFieldFirst: true},
			Decode:    s.decoder(i),
		}
	}
	return jobs
}

// decoder reconstructs picture i row by row on every slice of the context.
func (s *Scenario) decoder(i int) func(c *mpv.Context) error {
	return func(c *mpv.Context) error {
		mbw, mbh := c.MBSize()
		serial := c.NumSlices() == 1
		err := c.RunSlices(func(sl *mpv.Slice) error {
			for y := sl.StartRow; y < sl.EndRow; y++ {
				for _, mb := range s.Row(i, y, mbw) {
					sl.ReconstructMacroblock(mb)
				}
				if serial {
					c.ReportDecodeProgress(y)
				}
			}
			return nil
		})
		if !serial {
			c.ReportDecodeProgress(mbh - 1)
		}
		return err
	}
}

// Row generates the macroblocks of row y of picture i.
func (s *Scenario) Row(i, y, mbw int) []*mpv.Macroblock {
	rng := rand.New(rand.NewSource(s.Seed*1_000_003 + int64(i)<<20 + int64(y)))
	typ := s.Type(i)
	row := make([]*mpv.Macroblock, mbw)
	for x := range row {
		mb := &mpv.Macroblock{X: x, Y: y, QScale: s.QScale}
		mb.ClearBlocks()
		if typ == mpv.TypeI || rng.Float64() < s.Motion.Intra {
			s.intra(rng, mb, x, y)
		} else {
			s.inter(rng, mb, typ)
		}
		row[x] = mb
	}
	return row
}

// blocks returns the number of transform blocks of a macroblock.
func (s *Scenario) blocks() int {
	switch s.chroma {
	case mpv.Chroma422:
		return 8
	case mpv.Chroma444:
		return 12
	}
	return 6
}

// dcStep is the DC coefficient that raises a block by one sample.
func (s *Scenario) dcStep() int16 {
	if s.codec == mpv.CodecMPEG1 || s.codec == mpv.CodecMPEG2 {
		return 8
	}
	return 1
}

func (s *Scenario) intra(rng *rand.Rand, mb *mpv.Macroblock, x, y int) {
	mb.Intra = true
	step := s.dcStep()
	for b := 0; b < s.blocks(); b++ {
		v := 16 + (x*37+y*23+b*29)%200
		v += rng.Intn(20)
		mb.Blocks[b][0] = int16(v) * step
		mb.LastIndex[b] = 0
	}
}

func (s *Scenario) inter(rng *rand.Rand, mb *mpv.Macroblock, typ mpv.PictureType) {
	fwd, bwd := true, false
	if typ == mpv.TypeB {
		switch rng.Intn(3) {
		case 0:
			fwd, bwd = false, true
		case 1:
			bwd = true
		}
	}
	if fwd {
		mb.Forward = s.partition(rng, typ)
	}
	if bwd {
		mb.Backward = s.partition(rng, typ)
	}
	mb.InterlacedDCT = rng.Float64() < s.InterlacedDCT
	step := s.dcStep()
	for b := 0; b < s.blocks(); b++ {
		if rng.Float64() >= s.Residual {
			continue
		}
		mb.Blocks[b][0] = int16(rng.Intn(11)-5) * step
		mb.LastIndex[b] = 0
	}
}

func (s *Scenario) partition(rng *rand.Rand, typ mpv.PictureType) mpv.Partition {
	kind := s.Motion.Partitions[rng.Intn(len(s.Motion.Partitions))]
	switch kind {
	case "quad":
		var q mpv.Quad
		for i := range q.MV {
			q.MV[i] = s.vector(rng)
		}
		return q
	case "field":
		return mpv.Field{
			MV:          [2]mpv.Vector{s.vector(rng), s.vector(rng)},
			FieldSelect: [2]int{rng.Intn(2), rng.Intn(2)},
		}
	case "dualprime":
		if typ == mpv.TypeP {
			var d mpv.DualPrime
			for i := range d.MV {
				d.MV[i] = s.vector(rng)
			}
			return d
		}
	}
	return mpv.Single{MV: s.vector(rng)}
}

func (s *Scenario) vector(rng *rand.Rand) mpv.Vector {
	n := 2*s.Motion.Range + 1
	return mpv.Vector{X: rng.Intn(n) - s.Motion.Range, Y: rng.Intn(n) - s.Motion.Range}
}
