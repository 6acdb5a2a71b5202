package session

import (
	"context"
	"sync"
)

const (
	// DefaultTokenKey is the credential store key holding the bearer token.
	DefaultTokenKey = "session:token"
	// DefaultUserKey is the credential store key holding the serialized user.
	DefaultUserKey = "session:user"
)

// MemoryStore is an in-process CredentialStore. It does not survive a
// restart; use BunStore when durability is required.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ CredentialStore = &MemoryStore{}

// NewMemoryStore returns an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string]string{},
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.values[key]
	return val, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Len reports the number of stored keys, mostly useful in tests.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
