package memory

import (
	"context"
	"sync"

	"aris/internal/domain"
)

// MemStore keeps everything in process. Nothing survives a restart.
type MemStore struct {
	mu       sync.Mutex
	profile  *domain.FaceProfile
	memories []domain.MemoryItem
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) LoadProfile(context.Context) (domain.FaceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return domain.FaceProfile{}, ErrNoProfile
	}
	return *s.profile, nil
}

func (s *MemStore) SaveProfile(_ context.Context, profile domain.FaceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &profile
	return nil
}

func (s *MemStore) ClearProfile(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	return nil
}

func (s *MemStore) Memories(context.Context) ([]domain.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MemoryItem{}, s.memories...), nil
}

func (s *MemStore) AddMemory(_ context.Context, item domain.MemoryItem, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = append(s.memories, item)
	if limit > 0 && len(s.memories) > limit {
		s.memories = append([]domain.MemoryItem(nil), s.memories[len(s.memories)-limit:]...)
	}
	return nil
}

func (s *MemStore) ClearMemories(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = nil
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
