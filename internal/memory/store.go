package memory

import (
	"context"
	"errors"

	"aris/internal/domain"
)

var (
	// ErrNoProfile is returned when no face profile has been saved.
	ErrNoProfile   = errors.New("no face profile saved")
	ErrEmptyMemory = errors.New("memory content is empty")
)

// Store persists the profile and the memory notes. Memories are returned
// oldest first.
type Store interface {
	LoadProfile(ctx context.Context) (domain.FaceProfile, error)
	SaveProfile(ctx context.Context, profile domain.FaceProfile) error
	ClearProfile(ctx context.Context) error
	Memories(ctx context.Context) ([]domain.MemoryItem, error)
	// AddMemory appends item and prunes the oldest notes beyond limit.
	AddMemory(ctx context.Context, item domain.MemoryItem, limit int) error
	ClearMemories(ctx context.Context) error
	Close() error
}
