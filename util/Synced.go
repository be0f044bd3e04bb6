package util

import (
	"sync"

	"github.com/dolthub/swiss"
)

// SyncedMap is a map guarded by a read/write mutex.
type SyncedMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSyncedMap[K comparable, V any]() *SyncedMap[K, V] {
	return &SyncedMap[K, V]{
		m: make(map[K]V),
	}
}

func (m *SyncedMap[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.m)
}

func (m *SyncedMap[K, V]) Exists(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.m[key]

	return ok
}

func (m *SyncedMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.m[key]

	return val, ok
}

// Range returns a snapshot copy of the map.
func (m *SyncedMap[K, V]) Range() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make(map[K]V, len(m.m))

	for k, v := range m.m {
		items[k] = v
	}

	return items
}

func (m *SyncedMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.m[key] = value
	m.mu.Unlock()
}

// SetMulti stores value under every key in one critical section.
func (m *SyncedMap[K, V]) SetMulti(keys []K, value V) {
	m.mu.Lock()
	for _, key := range keys {
		m.m[key] = value
	}
	m.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (m *SyncedMap[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.m[key]
	delete(m.m, key)

	return ok
}

// SyncedSwissMap is a swiss map guarded by a read/write mutex.
type SyncedSwissMap[K comparable, V any] struct {
	mu       sync.RWMutex
	length   uint32
	swissMap *swiss.Map[K, V]
}

func NewSyncedSwissMap[K comparable, V any](length uint32) *SyncedSwissMap[K, V] {
	return &SyncedSwissMap[K, V]{
		length:   length,
		swissMap: swiss.NewMap[K, V](length),
	}
}

func (m *SyncedSwissMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.swissMap.Get(key)
}

// Range returns a snapshot copy of the map.
func (m *SyncedSwissMap[K, V]) Range() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make(map[K]V, m.swissMap.Count())

	m.swissMap.Iter(func(key K, value V) bool {
		items[key] = value
		return false // continue
	})

	return items
}

func (m *SyncedSwissMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.swissMap.Put(key, value)
}

func (m *SyncedSwissMap[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.swissMap.Count()
}

func (m *SyncedSwissMap[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.swissMap.Delete(key)
}

// DeleteBatch removes every key and reports whether any of them was present.
func (m *SyncedSwissMap[K, V]) DeleteBatch(keys []K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := false

	for _, key := range keys {
		if m.swissMap.Delete(key) {
			ok = true
		}
	}

	return ok
}

// Drain empties the map and returns what it held.
func (m *SyncedSwissMap[K, V]) Drain() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make(map[K]V, m.swissMap.Count())

	m.swissMap.Iter(func(key K, value V) bool {
		items[key] = value
		return false
	})

	m.swissMap = swiss.NewMap[K, V](m.length)

	return items
}
