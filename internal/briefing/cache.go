package briefing

import (
	"sync"
	"time"
)

// Cache holds the most recent bulletin so every request does not trigger a
// model call. Bulletins refresh when the cached one ages out.
type Cache struct {
	mu        sync.RWMutex
	text      string
	generated time.Time
	maxAge    time.Duration
}

func NewCache(maxAge time.Duration) *Cache {
	return &Cache{maxAge: maxAge}
}

func (c *Cache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.text == "" || time.Since(c.generated) > c.maxAge {
		return "", false
	}
	return c.text, true
}

func (c *Cache) Set(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.generated = time.Now()
}
