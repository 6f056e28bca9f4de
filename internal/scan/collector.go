package scan

import (
	"sync"
	"time"
)

// Collector is an insert-only map shared by scan workers. Each key is
// written once; concurrent Add calls never lose entries.
type Collector struct {
	mu     sync.Mutex
	files  map[string]time.Time
	frozen bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{files: make(map[string]time.Time)}
}

// Add records path's modification time. Adds after Freeze are dropped.
func (c *Collector) Add(path string, mod time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return
	}
	c.files[path] = mod
}

// Len returns the number of recorded paths.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// Freeze stops further inserts and hands over the underlying map.
func (c *Collector) Freeze() map[string]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	out := c.files
	c.files = nil
	if out == nil {
		out = make(map[string]time.Time)
	}
	return out
}
