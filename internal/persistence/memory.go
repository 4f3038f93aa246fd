package persistence

import (
	"context"
	"sync"
)

// MemorySlot keeps the value in process memory. Used for the memory storage driver and tests.
type MemorySlot struct {
	mu    sync.Mutex
	value []byte
	set   bool
}

// NewMemorySlot returns an empty slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (m *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), m.value...), nil
}

func (m *MemorySlot) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = append([]byte(nil), data...)
	m.set = true
	return nil
}

func (m *MemorySlot) Remove(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = nil
	m.set = false
	return nil
}
