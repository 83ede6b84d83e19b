package sequence

import (
	"sync"
	"time"
)

// MemoryCounter issues codes from process memory. It exists for tests and for
// the in-memory repositories used by service tests.
type MemoryCounter struct {
	mu   sync.Mutex
	last map[string]int64
}

// NewMemoryCounter returns an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{last: make(map[string]int64)}
}

// Next draws the next code for the document family in the bucket of now.
func (c *MemoryCounter) Next(doc DocType, now time.Time) string {
	bucket := Bucket(now)
	key := string(doc) + ":" + bucket
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[key]++
	return Format(doc, bucket, c.last[key])
}
