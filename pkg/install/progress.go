package install

import "sync"

// Progress tracks one installation: a fixed unit total, a monotonically
// non-decreasing completed count, a label for the current stage, and a cancel
// signal. The orchestrator is the only writer of the stage units; the device
// transport composes its sub-progress through Add.
type Progress struct {
	mu        sync.Mutex
	total     int64
	completed int64
	label     string
	cancelled bool
	onChange  func(completed, total int64, label string)
	onCancel  []func()
}

// NewProgress returns a tracker with the given fixed unit total.
func NewProgress(total int64) *Progress {
	return &Progress{total: total}
}

// Total returns the fixed unit total.
func (p *Progress) Total() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// Completed returns the number of completed units.
func (p *Progress) Completed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// Label returns the human-readable description of the current stage.
func (p *Progress) Label() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.label
}

// SetOnChange registers an observer invoked after every progress update.
func (p *Progress) SetOnChange(fn func(completed, total int64, label string)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Cancel requests cancellation. The workflow stops before issuing the next
// stage's remote call and terminates with ErrCancelled.
func (p *Progress) Cancel() {
	p.mu.Lock()
	if p.cancelled {
		p.mu.Unlock()
		return
	}
	p.cancelled = true
	hooks := append([]func(){}, p.onCancel...)
	p.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// Cancelled reports whether cancellation was requested.
func (p *Progress) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// Add advances the completed count by n units, clamped to the total. Used by
// the device transport to compose install sub-progress into the same scale.
func (p *Progress) Add(n int64) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.completed += n
	if p.completed > p.total {
		p.completed = p.total
	}
	p.notifyAndUnlock()
}

// setLabel updates the current stage description.
func (p *Progress) setLabel(label string) {
	p.mu.Lock()
	p.label = label
	p.notifyAndUnlock()
}

// step marks one stage unit complete.
func (p *Progress) step() {
	p.Add(1)
}

// finish clamps the completed count to the total on the success path.
func (p *Progress) finish() {
	p.mu.Lock()
	p.completed = p.total
	p.notifyAndUnlock()
}

// registerCancel adds a hook run when cancellation is requested. If the
// tracker is already cancelled the hook runs immediately.
func (p *Progress) registerCancel(hook func()) {
	p.mu.Lock()
	cancelled := p.cancelled
	if !cancelled {
		p.onCancel = append(p.onCancel, hook)
	}
	p.mu.Unlock()

	if cancelled {
		hook()
	}
}

// notifyAndUnlock releases p.mu and invokes the observer outside the lock.
// Callers must hold p.mu and must not touch p afterwards.
func (p *Progress) notifyAndUnlock() {
	fn := p.onChange
	completed, total, label := p.completed, p.total, p.label
	p.mu.Unlock()
	if fn != nil {
		fn(completed, total, label)
	}
}
