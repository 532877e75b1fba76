package store

import (
	"context"
	"errors"
	"sync"
)

// Fixed keys the vault collections live under.
const (
	DocumentsKey = "vault_documents"
	WritingsKey  = "vault_writings"
)

var ErrEmptyKey = errors.New("store: key is required")

// Store is a flat text key-value store. Load reports ok=false with a nil
// error when the key has never been saved.
type Store interface {
	Load(ctx context.Context, key string) (text string, ok bool, err error)
	Save(ctx context.Context, key, text string) error
	Close() error
}

// Memory keeps values in process memory. Nothing survives a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Load(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Save(_ context.Context, key, text string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = text
	return nil
}

func (m *Memory) Close() error { return nil }
