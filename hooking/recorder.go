package hooking

import "sync"

// Recorder is a Hook that keeps every context it receives. It is meant for
// tests and for tools that want to tally events after the fact.
type Recorder struct {
	mu   sync.Mutex
	ctxs []HookCtx
}

// Func records ctx.
func (r *Recorder) Func(ctx HookCtx) {
	r.mu.Lock()
	r.ctxs = append(r.ctxs, ctx)
	r.mu.Unlock()
}

// Events returns a copy of all recorded contexts.
func (r *Recorder) Events() []HookCtx {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HookCtx, len(r.ctxs))
	copy(out, r.ctxs)
	return out
}

// Count returns how many recorded contexts fired at pos.
func (r *Recorder) Count(pos *HookPos) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.ctxs {
		if c.Pos == pos {
			n++
		}
	}
	return n
}

// Reset drops every recorded context.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ctxs = nil
	r.mu.Unlock()
}
