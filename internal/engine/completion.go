package engine

import "sync"

// completions hands out one channel per job that is closed when the job
// reaches a terminal status. Waiting on a job that already finished returns a
// closed channel.
type completions struct {
	mu sync.Mutex
	ch map[string]chan struct{}
}

func newCompletions() *completions {
	return &completions{ch: make(map[string]chan struct{})}
}

func (c *completions) get(id string) chan struct{} {
	ch, ok := c.ch[id]
	if !ok {
		ch = make(chan struct{})
		c.ch[id] = ch
	}
	return ch
}

func (c *completions) wait(id string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(id)
}

// complete closes the job's channel. Calling it twice is a no-op.
func (c *completions) complete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.get(id)
	select {
	case <-ch:
	default:
		close(ch)
	}
}
