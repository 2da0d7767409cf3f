package history

import (
	"context"
	"time"
)

// memStore is an in-memory set store for tests.
type memStore struct {
	sets map[string]map[string]bool
	kv   map[string][]byte
	ttls map[string]time.Duration

	sAddErr error
	sRemErr error
	sMemErr error
	delErr  error
}

func newMemStore() *memStore {
	return &memStore{
		sets: make(map[string]map[string]bool),
		kv:   make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memStore) SAdd(_ context.Context, key string, members ...string) error {
	if m.sAddErr != nil {
		return m.sAddErr
	}
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]bool)
		m.sets[key] = set
	}
	for _, mem := range members {
		set[mem] = true
	}
	return nil
}

func (m *memStore) SRem(_ context.Context, key string, members ...string) error {
	if m.sRemErr != nil {
		return m.sRemErr
	}
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, mem := range members {
		delete(set, mem)
	}
	return nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	if m.sMemErr != nil {
		return nil, m.sMemErr
	}
	var out []string
	for mem := range m.sets[key] {
		out = append(out, mem)
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.sets, key)
	delete(m.kv, key)
	return nil
}
