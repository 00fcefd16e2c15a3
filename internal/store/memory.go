package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Repository.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]Item
	closed bool
	now    func() time.Time
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]Item), now: time.Now}
}

func (m *Memory) List(ctx context.Context, filter Filter) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	out := make([]Item, 0, len(m.items))

	for _, it := range m.items {
		if filter.match(it) {
			out = append(out, it.clone())
		}
	}

	sortItems(out)

	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Item{}, ErrClosed
	}

	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}

	return it.clone(), nil
}

func (m *Memory) Save(ctx context.Context, item Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	stamped := item.CreatedAt.IsZero()

	item, err := prepare(item, m.now())
	if err != nil {
		return Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Item{}, ErrClosed
	}

	if old, ok := m.items[item.ID]; ok && stamped {
		item.CreatedAt = old.CreatedAt
	}

	m.items[item.ID] = item

	return item.clone(), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}

	delete(m.items, id)

	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}
