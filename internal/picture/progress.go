package picture

import (
	"math"
	"sync"
	"sync/atomic"
)

// Done is the progress value published once a field is complete.
const Done = math.MaxInt32

// Progress is a monotonically increasing row counter. Producers Report rows
// as they finish; consumers Await the row they need. A fresh counter is at
// -1 (no row decoded).
type Progress struct {
	val     atomic.Int32
	waiters atomic.Int32
	mu      sync.Mutex
	cond    sync.Cond
}

func (p *Progress) init() {
	p.cond.L = &p.mu
	p.val.Store(-1)
}

// Load returns the last reported row.
func (p *Progress) Load() int { return int(p.val.Load()) }

// Report raises the counter to row. Lower values are ignored.
// Fast path: if no goroutine is waiting, only the atomic is touched.
func (p *Progress) Report(row int) {
	if row > Done {
		row = Done
	}
	for {
		cur := p.val.Load()
		if int32(row) <= cur {
			return
		}
		if p.val.CompareAndSwap(cur, int32(row)) {
			break
		}
	}
	if p.waiters.Load() > 0 {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// Await blocks until the counter reaches row.
// Fast path uses atomic load (no lock). Slow path uses cond.Wait.
func (p *Progress) Await(row int) {
	if row > Done {
		row = Done
	}
	if int(p.val.Load()) >= row {
		return
	}
	p.waiters.Add(1)
	p.mu.Lock()
	for int(p.val.Load()) < row {
		p.cond.Wait()
	}
	p.mu.Unlock()
	p.waiters.Add(-1)
}
