// Command mpvsim runs synthetic streams through the reconstruction engine
// and writes the decoded pictures.
//
// Usage:
//
//	mpvsim run [options] <scenario.yaml>   Decode a scenario and write its frames
//	mpvsim info <scenario.yaml>            Display scenario parameters
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/deepteams/mpv"
	"github.com/deepteams/mpv/internal/scenario"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runRun(os.Args[2:], os.Stderr)
	case "info":
		err = runInfo(os.Args[2:], os.Stdout)
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "mpvsim: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "mpvsim: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  mpvsim run [options] <scenario.yaml>   Decode a scenario and write its frames
  mpvsim info <scenario.yaml>            Display scenario parameters

Run "mpvsim <command> -h" for command-specific options.
`)
}

// --- run ---

func runRun(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", ".", "output directory")
	format := fs.String("format", "png", "output format: png, bmp, tiff, yuv, yuv.zst")
	config := fs.String("config", "", "YAML engine options file")
	lowres := fs.Int("lowres", -1, "decode at 1/2^n size, 0-3 (-1=config)")
	frameThreads := fs.Int("threads", 0, "frame threads (0=config)")
	sliceThreads := fs.Int("slices", 0, "slice threads (0=config)")
	nomc := fs.Bool("nomc", false, "skip motion compensation, show residuals only")
	gray := fs.Bool("gray", false, "decode luma only")
	qp := fs.Bool("qp", false, "print the mean quantizer of every frame")
	reorder := fs.Bool("reorder", true, "write frames in display order")
	verbose := fs.Bool("v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run: missing scenario file\nUsage: mpvsim run [options] <scenario.yaml>")
	}
	inputPath := fs.Arg(0)

	w, err := newFrameWriter(*format, *output, scenarioBase(inputPath))
	if err != nil {
		return err
	}

	opts, err := loadOptions(*config)
	if err != nil {
		return err
	}
	if *lowres >= 0 {
		opts.Lowres = *lowres
	}
	if *frameThreads > 0 {
		opts.FrameThreads = *frameThreads
	}
	if *sliceThreads > 0 {
		opts.SliceThreads = *sliceThreads
	}
	opts.DebugNoMC = opts.DebugNoMC || *nomc
	opts.GrayOnly = opts.GrayOnly || *gray
	opts.ExportQP = opts.ExportQP || *qp

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	sc, err := scenario.LoadFile(inputPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	n, err := decode(sc, opts, w, *reorder, func(res mpv.Result) {
		if *qp {
			fmt.Fprintf(stderr, "frame %d (%v): mean qp %.2f\n", res.Seq, res.Frame.Type, meanQP(res.QP))
		}
	})
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Fprintf(stderr, "Decoded %s → %s (%d frames, %s)\n", inputPath, *output, n, *format)
	return nil
}

func loadOptions(path string) (*mpv.Options, error) {
	if path == "" {
		return mpv.DefaultOptions(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	opts, err := mpv.LoadOptions(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return opts, nil
}

// decode submits every picture of sc and writes the results. It returns
// the number of frames written.
func decode(sc *scenario.Scenario, opts *mpv.Options, w frameWriter, reorder bool, report func(mpv.Result)) (int, error) {
	p, err := mpv.NewPipeline(opts)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	var (
		q       reorderQueue
		written int
		first   error
	)
	emit := func(f *mpv.Frame) {
		if f == nil {
			return
		}
		if first == nil {
			if err := w.WriteFrame(f); err != nil {
				first = err
			}
			written++
		}
		f.Release()
	}
	drain := func() {
		for {
			res, ok := p.Next()
			if !ok {
				return
			}
			if res.Err != nil {
				opts.Logger.Warn("frame damaged", "seq", res.Seq, "err", res.Err)
			}
			if res.Frame == nil {
				continue
			}
			report(res)
			if reorder {
				emit(q.push(res.Frame))
			} else {
				emit(res.Frame)
			}
		}
	}

	for i, job := range sc.Jobs() {
		if err := p.Submit(job); err != nil {
			return written, fmt.Errorf("frame %d: %w", i, err)
		}
		// Keep at most FrameThreads results outstanding.
		if (i+1)%opts.FrameThreads == 0 {
			drain()
		}
	}
	drain()
	emit(q.flush())
	return written, first
}

// reorderQueue turns decode order into display order: a reference picture
// is shown when the next reference arrives, B pictures right away.
type reorderQueue struct {
	held *mpv.Frame
}

func (q *reorderQueue) push(f *mpv.Frame) *mpv.Frame {
	if f.Type == mpv.TypeB {
		return f
	}
	out := q.held
	q.held = f
	return out
}

func (q *reorderQueue) flush() *mpv.Frame {
	out := q.held
	q.held = nil
	return out
}

func meanQP(qp []mpv.BlockParams) float64 {
	if len(qp) == 0 {
		return 0
	}
	var sum int
	for _, b := range qp {
		sum += b.DeltaQP
	}
	return float64(sum) / float64(len(qp))
}

// scenarioBase returns the file name stem used for outputs.
func scenarioBase(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// --- output ---

type frameWriter interface {
	WriteFrame(f *mpv.Frame) error
	Close() error
}

func newFrameWriter(format, dir, base string) (frameWriter, error) {
	switch strings.ToLower(format) {
	case "png", "bmp", "tiff":
		return &imageWriter{dir: dir, base: base, format: strings.ToLower(format)}, nil
	case "yuv":
		return newYUVWriter(filepath.Join(dir, base+".yuv"), false)
	case "yuv.zst":
		return newYUVWriter(filepath.Join(dir, base+".yuv.zst"), true)
	}
	return nil, fmt.Errorf("run: unknown format %q (use png/bmp/tiff/yuv/yuv.zst)", format)
}

// imageWriter writes one image file per frame.
type imageWriter struct {
	dir, base, format string
	n                 int
}

func (w *imageWriter) WriteFrame(f *mpv.Frame) error {
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%04d.%s", w.base, w.n, w.format))
	w.n++
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeImage(out, f.YCbCr(), w.format); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	return out.Close()
}

func (w *imageWriter) Close() error { return nil }

// encodeImage writes img in the specified format to w.
func encodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(w, img)
	}
}

// yuvWriter appends the visible planes of every frame to one raw file,
// optionally zstd compressed.
type yuvWriter struct {
	file *os.File
	zw   *zstd.Encoder
	w    io.Writer
}

func newYUVWriter(path string, compress bool) (*yuvWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	y := &yuvWriter{file: f, w: f}
	if compress {
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, err
		}
		y.zw, y.w = zw, zw
	}
	return y, nil
}

func (y *yuvWriter) WriteFrame(f *mpv.Frame) error {
	return writePlanes(y.w, f)
}

func (y *yuvWriter) Close() error {
	if y.zw != nil {
		if err := y.zw.Close(); err != nil {
			y.file.Close()
			return err
		}
	}
	return y.file.Close()
}

// planeSize returns the visible size of plane i of f.
func planeSize(f *mpv.Frame, i int) (w, h int) {
	if i == 0 {
		return f.Width, f.Height
	}
	switch f.ChromaFormat {
	case mpv.Chroma444:
		return f.Width, f.Height
	case mpv.Chroma422:
		return (f.Width + 1) >> 1, f.Height
	}
	return (f.Width + 1) >> 1, (f.Height + 1) >> 1
}

// writePlanes writes the Y, Cb and Cr planes of f without padding.
func writePlanes(w io.Writer, f *mpv.Frame) error {
	for i := 0; i < 3; i++ {
		pix, off, stride := f.Plane(i)
		pw, ph := planeSize(f, i)
		for y := 0; y < ph; y++ {
			row := off + y*stride
			if _, err := w.Write(pix[row : row+pw]); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- info ---

func runInfo(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("info: missing scenario file\nUsage: mpvsim info <scenario.yaml>")
	}
	sc, err := scenario.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	p := sc.Params(0)
	fmt.Fprintf(stdout, "Name:       %s\n", sc.Name)
	fmt.Fprintf(stdout, "Codec:      %s\n", p.Codec)
	fmt.Fprintf(stdout, "Dimensions: %d x %d\n", p.Width, p.Height)
	fmt.Fprintf(stdout, "Chroma:     %s\n", sc.Chroma)
	fmt.Fprintf(stdout, "GOP:        %s x %d\n", strings.ToUpper(sc.GOP), sc.Repeat)
	fmt.Fprintf(stdout, "Frames:     %d\n", sc.Frames())
	fmt.Fprintf(stdout, "Partitions: %s\n", strings.Join(sc.Motion.Partitions, ", "))
	return nil
}
