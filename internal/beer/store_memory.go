package beer

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[uuid.UUID]Beer
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[uuid.UUID]Beer{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Beer, 0, len(s.m))
	for _, b := range s.m {
		out = append(out, b)
	}

	sortBeers(out)
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id uuid.UUID) (Beer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.m[id]
	return b, ok, nil
}

func (s *MemStore) Put(ctx context.Context, b Beer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[b.ID] = b
	return nil
}

func (s *MemStore) Update(ctx context.Context, id uuid.UUID, fn func(*Beer)) (Beer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.m[id]
	if !ok {
		return Beer{}, false, nil
	}
	fn(&b)
	b.ID = id
	s.m[id] = b
	return b, true, nil
}

func (s *MemStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return false, nil
	}
	delete(s.m, id)
	return true, nil
}
