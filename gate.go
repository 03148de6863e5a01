// gate.go
// -------
// gate is a one-shot broadcast signal: many goroutines can await it, and a
// single Fire releases all of them at once. Used for the global init gate,
// each business's init gate, and each business's suspend gate (§4.4, §4.5,
// §9). A fresh gate replaces the old one on each suspend cycle so waiters
// from a prior cycle are drained by that cycle's resume, per §9's design
// note on the suspend gate.
package linkbridge

import "sync"

type gate struct {
	mu   sync.Mutex
	ch   chan struct{}
	done bool
}

func newGate() *gate {
	return &gate{ch: make(chan struct{})}
}

// wait blocks until fire is called, or done is closed.
func (g *gate) wait(done <-chan struct{}) {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	select {
	case <-ch:
	case <-done:
	}
}

// fire releases every current and future waiter. Double-fire is a no-op.
func (g *gate) fire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	g.done = true
	close(g.ch)
}

// channel exposes the gate's current underlying channel, for callers that
// need to select on it alongside other cases rather than blocking in wait.
func (g *gate) channel() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}

// fired reports whether the gate has already been fired.
func (g *gate) fired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// reset replaces the gate with a fresh, unfired one, draining any prior
// waiters by way of the just-closed channel remaining closed for them.
func (g *gate) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ch = make(chan struct{})
	g.done = false
}
