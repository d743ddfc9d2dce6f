package services

import (
	"sync"
	"time"
)

// MemoryStore EphemeralStore 的内存实现, 用于单进程部署和测试
type MemoryStore struct {
	entries map[string]*storeEntry
	mu      sync.RWMutex
	done    chan bool
}

// storeEntry 存储条目
type storeEntry struct {
	Value     string
	ExpiresAt time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*storeEntry),
		done:    make(chan bool),
	}

	// 启动清理协程
	go s.cleanupLoop()

	return s
}

// Get 实现 EphemeralStore 接口
func (s *MemoryStore) Get(token, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[storeKey(token, key)]
	if !exists {
		return "", false, nil
	}

	// 检查是否过期
	if time.Now().After(entry.ExpiresAt) {
		return "", false, nil
	}

	return entry.Value, true, nil
}

// Set 实现 EphemeralStore 接口
func (s *MemoryStore) Set(token, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[storeKey(token, key)] = &storeEntry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete 实现 EphemeralStore 接口
func (s *MemoryStore) Delete(token, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, storeKey(token, key))
	return nil
}

// Close 实现 EphemeralStore 接口
func (s *MemoryStore) Close() error {
	close(s.done)
	return nil
}

// Size 当前条目数量
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// cleanupLoop 定期清理过期条目
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup 清理过期条目
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, key)
		}
	}
}
