// Package keymutex serializes work per string key. Keys are spread
// over a fixed set of mutex shards by an FNV-1a hash, so operations on
// different keys only contend when they land in the same shard.
package keymutex

import (
	"hash/fnv"
	"sync"
)

const numShards = 64

type KeyMutex struct {
	shards [numShards]sync.Mutex
}

func New() *KeyMutex {
	return &KeyMutex{}
}

func (m *KeyMutex) Lock(key string) {
	m.shards[shardOf(key)].Lock()
}

func (m *KeyMutex) Unlock(key string) {
	m.shards[shardOf(key)].Unlock()
}

func shardOf(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % numShards
}
