package nav

import "sync"

// ScrollThrottle coalesces scroll positions so the shadow flag is recomputed
// at most once per frame. Observe records the latest offset; Frame applies it.
type ScrollThrottle struct {
	mu      sync.Mutex
	state   *State
	lastY   int
	ticking bool
}

// NewScrollThrottle returns a throttle updating state.
func NewScrollThrottle(state *State) *ScrollThrottle {
	return &ScrollThrottle{state: state}
}

// Observe records offset y. It reports true when this call scheduled a new
// frame, false when a frame was already pending.
func (t *ScrollThrottle) Observe(y int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastY = y
	if t.ticking {
		return false
	}
	t.ticking = true
	return true
}

// Frame applies the latest observed offset if a frame is pending and reports
// whether it did.
func (t *ScrollThrottle) Frame() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.ticking {
		return false
	}
	t.state.Scroll(t.lastY)
	t.ticking = false
	return true
}
