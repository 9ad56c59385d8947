// Package ratelimit provides fixed-window request limiters.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether key may make another request in the current window.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *Memory) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	b, ok := m.buckets[key]
	if !ok || now.After(b.windowEnd) {
		m.buckets[key] = &bucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// Sweep forgets expired windows.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, b := range m.buckets {
		if now.After(b.windowEnd) {
			delete(m.buckets, k)
			removed++
		}
	}
	return removed
}
