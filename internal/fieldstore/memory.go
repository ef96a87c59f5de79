package fieldstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a Store backed by a map. Values are lost when the process exits.
type Memory struct {
	mu     sync.RWMutex
	fields map[string]memoryField
	now    func() time.Time
}

type memoryField struct {
	value     string
	updatedAt time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{fields: make(map[string]memoryField), now: time.Now}
}

func (m *Memory) Load(_ context.Context, fieldID string) (string, bool, error) {
	if err := ValidateFieldID(fieldID); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fields[fieldID]
	return f.value, ok, nil
}

func (m *Memory) Save(_ context.Context, fieldID, value string) error {
	if err := ValidateFieldID(fieldID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[fieldID] = memoryField{value: value, updatedAt: m.now().UTC()}
	return nil
}

func (m *Memory) List(_ context.Context) ([]Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Field, 0, len(m.fields))
	for id, f := range m.fields {
		out = append(out, Field{ID: id, Bytes: len(f.value), UpdatedAt: f.updatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Close() error { return nil }
