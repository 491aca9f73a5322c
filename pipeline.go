package mpv

import (
	"fmt"
	"log/slog"
	"sync"
)

// Job is one picture submitted to a Pipeline.
type Job struct {
	Params    Params
	Interlace Interlace

	// Bitstream, if set, replaces the context's bitstream scratch before
	// the frame starts.
	Bitstream []byte

	// Decode reconstructs every macroblock of the picture. It runs on its
	// own goroutine and must only touch the context it is given.
	Decode func(c *Context) error
}

// Result is the outcome of one Job, delivered in submission order.
type Result struct {
	Seq   int
	Frame *Frame
	QP    []BlockParams
	Err   error
}

type worker struct {
	c    *Context
	idle chan struct{}
}

// Pipeline decodes consecutive pictures on Options.FrameThreads worker
// contexts. Frame setup (thread context update and FrameStart) runs on the
// submitting goroutine in order; Decode functions overlap and synchronize
// on reference row progress only.
//
// Submit, Next, Flush and Close must be called from one goroutine.
type Pipeline struct {
	opts    Options
	log     *slog.Logger
	workers []*worker
	next    int
	prev    *Context
	seq     int

	mu      sync.Mutex
	pending []chan Result
	wg      sync.WaitGroup
}

// NewPipeline creates the worker contexts. A nil opts means DefaultOptions.
func NewPipeline(opts *Options) (*Pipeline, error) {
	var o Options
	if opts != nil {
		o = *opts
	} else {
		o = *DefaultOptions()
	}
	o.applyDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{opts: o, log: o.Logger}
	if p.log == nil {
		p.log = slog.Default()
	}
	for i := 0; i < o.FrameThreads; i++ {
		c, err := New(&o)
		if err != nil {
			return nil, err
		}
		w := &worker{c: c, idle: make(chan struct{}, 1)}
		w.idle <- struct{}{}
		p.workers = append(p.workers, w)
	}
	return p, nil
}

// Submit starts job on the next worker, waiting for that worker's previous
// frame to finish. Setup errors are returned directly and no Result is
// queued for the job.
func (p *Pipeline) Submit(job Job) error {
	if job.Decode == nil {
		return fmt.Errorf("mpv: job without decode function")
	}
	w := p.workers[p.next]
	p.next = (p.next + 1) % len(p.workers)
	<-w.idle

	c := w.c
	if err := p.setup(c, &job); err != nil {
		w.idle <- struct{}{}
		return err
	}
	p.prev = c

	out := make(chan Result, 1)
	seq := p.seq
	p.seq++
	p.mu.Lock()
	p.pending = append(p.pending, out)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := job.Decode(c)
		if err != nil {
			c.log.Warn("frame decode failed", "seq", seq, "err", err)
			c.abortFrame()
		}
		c.FrameEnd()

		res := Result{Seq: seq, Err: err}
		if f, ferr := c.Output(); ferr == nil {
			res.Frame = f
		}
		if p.opts.ExportQP {
			res.QP = c.ExportQP(QScaleMPEG2)
		}
		out <- res
		w.idle <- struct{}{}
	}()
	return nil
}

func (p *Pipeline) setup(c *Context, job *Job) error {
	if err := c.BeginSetup(); err != nil {
		return err
	}
	if p.prev != nil {
		if err := c.UpdateThreadContext(p.prev); err != nil {
			return err
		}
	}
	c.Params = job.Params
	c.Interlace = job.Interlace
	if job.Bitstream != nil {
		c.SetBitstream(job.Bitstream)
	}
	return c.FrameStart()
}

// Next returns the oldest undelivered result, blocking until its frame is
// done. ok is false when no submitted job is outstanding.
func (p *Pipeline) Next() (res Result, ok bool) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return Result{}, false
	}
	ch := p.pending[0]
	p.pending = p.pending[1:]
	p.mu.Unlock()
	return <-ch, true
}

// Flush waits for every running frame, drops undelivered results and
// empties the picture pools of all workers, as on a seek.
func (p *Pipeline) Flush() {
	p.wg.Wait()
	for {
		res, ok := p.Next()
		if !ok {
			break
		}
		if res.Frame != nil {
			res.Frame.Release()
		}
	}
	for _, w := range p.workers {
		w.c.Flush()
	}
	p.prev = nil
}

// Close flushes the pipeline and releases every worker context.
func (p *Pipeline) Close() {
	p.Flush()
	for _, w := range p.workers {
		w.c.Close()
	}
}
