package bridge

import "sync"

// ringLog is a bounded append-only line log. Appends past capacity evict the
// oldest lines, so a chatty editor can run for days without growing the
// controller's memory.
type ringLog struct {
	mu    sync.Mutex
	cap   int
	lines []string
}

func newRingLog(capacity int) *ringLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &ringLog{cap: capacity}
}

func (r *ringLog) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.cap {
		// Copy down instead of re-slicing so the backing array is reusable
		// and evicted lines become collectable.
		n := copy(r.lines, r.lines[len(r.lines)-r.cap:])
		r.lines = r.lines[:n]
	}
}

// Tail returns the last n lines (all lines when n <= 0). The returned slice
// is a copy; readers never block or observe later appends.
func (r *ringLog) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}

func (r *ringLog) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}
