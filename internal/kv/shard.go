package kv

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// shardedMap is a concurrent string-keyed map split across shardCount
// independently-locked buckets, so concurrent readers and writers rarely
// contend on the same lock.
type shardedMap struct {
	shards [shardCount]*shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func newShardedMap() *shardedMap {
	sm := &shardedMap{}
	for i := range sm.shards {
		sm.shards[i] = &shard{m: make(map[string][]byte)}
	}
	return sm
}

func (sm *shardedMap) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return sm.shards[h.Sum32()%shardCount]
}

func (sm *shardedMap) get(key string) ([]byte, bool) {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (sm *shardedMap) set(key string, value []byte) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (sm *shardedMap) delete(key string) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (sm *shardedMap) has(key string) bool {
	_, ok := sm.get(key)
	return ok
}
