package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"aris/internal/domain"
)

const (
	redisProfileKey  = "aris:profile"
	redisMemoriesKey = "aris:memories"
)

// RedisConfig addresses the Redis server used as the store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps the profile as a JSON string and the notes as a list,
// oldest at the head.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	slog.Info("connecting to redis", "addr", cfg.Addr, "db", cfg.DB)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisProfile struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *RedisStore) LoadProfile(ctx context.Context) (domain.FaceProfile, error) {
	raw, err := s.client.Get(ctx, redisProfileKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.FaceProfile{}, ErrNoProfile
	}
	if err != nil {
		return domain.FaceProfile{}, fmt.Errorf("get profile: %w", err)
	}

	var stored redisProfile
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.FaceProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	profile := domain.FaceProfile{
		Name:        stored.Name,
		Description: stored.Description,
		ImageURL:    stored.ImageURL,
		CreatedAt:   stored.CreatedAt,
	}
	if stored.ImageURL != "" {
		if img, err := domain.ParseDataURL(stored.ImageURL); err == nil {
			profile.Image = img
		}
	}
	return profile, nil
}

func (s *RedisStore) SaveProfile(ctx context.Context, profile domain.FaceProfile) error {
	raw, err := json.Marshal(redisProfile{
		Name:        profile.Name,
		Description: profile.Description,
		ImageURL:    profile.ImageURL,
		CreatedAt:   profile.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.client.Set(ctx, redisProfileKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearProfile(ctx context.Context) error {
	if err := s.client.Del(ctx, redisProfileKey).Err(); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *RedisStore) Memories(ctx context.Context) ([]domain.MemoryItem, error) {
	values, err := s.client.LRange(ctx, redisMemoriesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	memories := make([]domain.MemoryItem, 0, len(values))
	for _, value := range values {
		var item domain.MemoryItem
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			slog.Warn("skipping undecodable memory", "error", err)
			continue
		}
		memories = append(memories, item)
	}
	return memories, nil
}

func (s *RedisStore) AddMemory(ctx context.Context, item domain.MemoryItem, limit int) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, redisMemoriesKey, raw)
	if limit > 0 {
		pipe.LTrim(ctx, redisMemoriesKey, int64(-limit), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearMemories(ctx context.Context) error {
	if err := s.client.Del(ctx, redisMemoriesKey).Err(); err != nil {
		return fmt.Errorf("delete memories: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
