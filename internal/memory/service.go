package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"aris/internal/domain"
	"aris/internal/ports"
)

const (
	DefaultMemoryLimit  = 50
	DefaultContextLimit = 10
)

// Config bounds how many notes are kept and how many reach the prompt.
type Config struct {
	MemoryLimit  int
	ContextLimit int
}

// Service owns the user's face profile and remembered notes, and renders
// them into the per-request context preamble.
type Service struct {
	store    Store
	clock    ports.Clock
	validate *validator.Validate
	cfg      Config
}

func NewService(store Store, clock ports.Clock, cfg Config) *Service {
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = DefaultMemoryLimit
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = DefaultContextLimit
	}
	return &Service{
		store:    store,
		clock:    clock,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// Profile returns the saved profile or ErrNoProfile.
func (s *Service) Profile(ctx context.Context) (domain.FaceProfile, error) {
	return s.store.LoadProfile(ctx)
}

// SaveProfile validates and stores profile, replacing any previous one.
func (s *Service) SaveProfile(ctx context.Context, profile domain.FaceProfile) (domain.FaceProfile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Description = strings.TrimSpace(profile.Description)
	if err := s.validate.Struct(profile); err != nil {
		return domain.FaceProfile{}, fmt.Errorf("invalid profile: %w", err)
	}
	if profile.Image != nil {
		profile.ImageURL = profile.Image.DataURL()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.clock.Now()
	}
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return domain.FaceProfile{}, fmt.Errorf("save profile: %w", err)
	}
	slog.Info("face profile saved", "name", profile.Name)
	return profile, nil
}

func (s *Service) ClearProfile(ctx context.Context) error {
	if err := s.store.ClearProfile(ctx); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return nil
}

func (s *Service) Memories(ctx context.Context) ([]domain.MemoryItem, error) {
	return s.store.Memories(ctx)
}

// AddMemory remembers a trimmed note. The store keeps only the most recent
// MemoryLimit notes.
func (s *Service) AddMemory(ctx context.Context, content string) (domain.MemoryItem, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.MemoryItem{}, ErrEmptyMemory
	}
	item := domain.MemoryItem{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: s.clock.Now(),
	}
	if err := s.store.AddMemory(ctx, item, s.cfg.MemoryLimit); err != nil {
		return domain.MemoryItem{}, fmt.Errorf("add memory: %w", err)
	}
	return item, nil
}

func (s *Service) ClearMemories(ctx context.Context) error {
	if err := s.store.ClearMemories(ctx); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	return nil
}

// ContextPreamble renders the profile and the most recent notes. It returns
// "" when neither exists. The result starts with its own blank line.
func (s *Service) ContextPreamble(ctx context.Context) (string, error) {
	var b strings.Builder

	profile, err := s.store.LoadProfile(ctx)
	switch {
	case err == nil:
		b.WriteString("\n\nIMPORTANT USER CONTEXT - This is your user:\n- Name: ")
		b.WriteString(profile.Name)
		b.WriteString("\n- Description: ")
		b.WriteString(profile.Description)
		b.WriteString("\nWhen you see them in the camera, greet them by name and be personal.")
	case !errors.Is(err, ErrNoProfile):
		return "", fmt.Errorf("load profile: %w", err)
	}

	memories, err := s.store.Memories(ctx)
	if err != nil {
		return "", fmt.Errorf("load memories: %w", err)
	}
	if len(memories) > s.cfg.ContextLimit {
		memories = memories[len(memories)-s.cfg.ContextLimit:]
	}
	if len(memories) > 0 {
		b.WriteString("\n\nRecent things you remember about conversations:")
		for _, m := range memories {
			b.WriteString("\n- ")
			b.WriteString(m.Content)
		}
	}
	return b.String(), nil
}

func (s *Service) Close() error {
	return s.store.Close()
}
