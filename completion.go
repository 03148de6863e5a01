// completion.go
// -------------
// completion is a Request's one-shot result slot (§9 design notes). It is
// a single-producer/single-consumer channel guarded by sync.Once so a
// second write is silently discarded rather than panicking or blocking,
// matching §4.6: "completion-slot double-writes are programmer errors ...
// the framework guarantees the slot is written at most once."
package linkbridge

import "sync"

type completion struct {
	once sync.Once
	c    chan Response
}

func newCompletion() *completion {
	return &completion{c: make(chan Response, 1)}
}

func (c *completion) ch() <-chan Response { return c.c }

// complete writes resp to the slot exactly once. Subsequent calls are no-ops.
func (c *completion) complete(resp Response) {
	c.once.Do(func() {
		c.c <- resp
	})
}
