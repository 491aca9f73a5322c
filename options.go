package mpv

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/deepteams/mpv/internal/dsp"
)

// MaxThreads bounds SliceThreads and FrameThreads.
const MaxThreads = 64

// Options controls how a Context reconstructs pictures.
type Options struct {
	// Lowres decodes at 1/2^Lowres of the coded size (0-3, default 0).
	Lowres int `yaml:"lowres"`

	// SliceThreads is the number of slice sub-contexts, each able to
	// reconstruct its own range of macroblock rows (1-64, default 1).
	SliceThreads int `yaml:"slice_threads"`

	// FrameThreads is the number of worker contexts of a Pipeline
	// (1-64, default 1).
	FrameThreads int `yaml:"frame_threads"`

	// WorkaroundBugs is a mask of Bug* flags.
	WorkaroundBugs uint32 `yaml:"workaround_bugs"`

	// ExportQP attaches per-macroblock quantizers to pipeline results.
	ExportQP bool `yaml:"export_qp"`

	// DebugNoMC fills every new picture mid-gray so that only residuals
	// show.
	DebugNoMC bool `yaml:"debug_nomc"`

	// GrayOnly skips chroma prediction and reconstruction.
	GrayOnly bool `yaml:"gray_only"`

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`

	// Kernels overrides the pixel kernels. Nil means dsp.Default().
	Kernels *dsp.Kernels `yaml:"-"`
}

// DefaultOptions returns the options used when nil is passed to New.
func DefaultOptions() *Options {
	return &Options{SliceThreads: 1, FrameThreads: 1}
}

func (o *Options) applyDefaults() {
	if o.SliceThreads == 0 {
		o.SliceThreads = 1
	}
	if o.FrameThreads == 0 {
		o.FrameThreads = 1
	}
}

// Validate reports the first out-of-range field.
func (o *Options) Validate() error {
	if o.Lowres < 0 || o.Lowres > 3 {
		return fmt.Errorf("mpv: lowres %d out of range [0,3]", o.Lowres)
	}
	if o.SliceThreads < 1 || o.SliceThreads > MaxThreads {
		return fmt.Errorf("mpv: slice_threads %d out of range [1,%d]", o.SliceThreads, MaxThreads)
	}
	if o.FrameThreads < 1 || o.FrameThreads > MaxThreads {
		return fmt.Errorf("mpv: frame_threads %d out of range [1,%d]", o.FrameThreads, MaxThreads)
	}
	return nil
}

// LoadOptions decodes YAML options from r. Missing fields take their
// defaults; unknown fields are an error.
func LoadOptions(r io.Reader) (*Options, error) {
	o := DefaultOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("mpv: decoding options: %w", err)
	}
	o.applyDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}
