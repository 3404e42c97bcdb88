// Package sequence provides the monotonic id counters owned by each engine
// component. Counters are plain state, not goroutine-safe: they are only
// touched inside the engine's write path, and ids are consumed strictly in
// the stage-then-apply order of committed mutations.
package sequence

// Counter allocates 1-based monotonic ids.
type Counter struct {
	last uint64
}

// New returns a counter whose next id is 1.
func New() *Counter {
	return &Counter{}
}

// Peek returns the id that the i-th allocation from now would receive,
// without consuming anything. Staged mutations use this to know their ids
// before the commit point.
func (c *Counter) Peek(i int) uint64 {
	return c.last + 1 + uint64(i)
}

// Advance consumes n ids. Called only when a staged mutation is applied.
func (c *Counter) Advance(n int) {
	c.last += uint64(n)
}

// Last returns the most recently allocated id, 0 if none.
func (c *Counter) Last() uint64 {
	return c.last
}

// Restore resets the counter after rehydration so the next allocation
// continues after the highest persisted id.
func (c *Counter) Restore(last uint64) {
	c.last = last
}
