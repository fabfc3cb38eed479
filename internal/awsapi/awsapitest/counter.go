// Package awsapitest provides test doubles for the awsapi client interfaces.
package awsapitest

import "sync"

// Counter records how many times each operation was invoked.
type Counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *Counter) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[op]++
}

// Calls returns the number of invocations of op.
func (c *Counter) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (c *Counter) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}
