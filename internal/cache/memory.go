package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Noop is a cache that stores nothing, used when caching is disabled.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (Noop) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (Noop) Delete(_ context.Context, _ string) error                         { return nil }
func (Noop) DeleteByPattern(_ context.Context, _ string) error                { return nil }
func (Noop) Close() error                                                     { return nil }

// Memory is an in-process cache for single-node deployments.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	stop  chan struct{}
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory() *Memory {
	c := &Memory{
		items: make(map[string]memoryItem),
		stop:  make(chan struct{}),
	}
	go c.evictLoop()

	return c
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return nil, ErrCacheMiss
	}

	return item.value, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}

	return nil
}

func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)

	return nil
}

func (c *Memory) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(pattern, key) {
			delete(c.items, key)
		}
	}

	return nil
}

func (c *Memory) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(c.stop)
	c.items = nil

	return nil
}

func (c *Memory) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.items == nil {
				c.mu.Unlock()
				return
			}

			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// matchPattern supports exact keys and a trailing * wildcard, which is
// all the dashboard key space needs.
func matchPattern(pattern, key string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}

	return pattern == key
}
