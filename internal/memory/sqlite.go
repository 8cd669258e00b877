package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"aris/internal/domain"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS profile (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		imageUrl TEXT NOT NULL DEFAULT '',
		createdAt INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
`

// SQLiteStore persists the profile and notes in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadProfile(ctx context.Context) (domain.FaceProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, description, imageUrl, createdAt
		FROM profile
		WHERE id = 1
	`)

	var profile domain.FaceProfile
	var createdAt int64
	if err := row.Scan(&profile.Name, &profile.Description, &profile.ImageURL, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FaceProfile{}, ErrNoProfile
		}
		return domain.FaceProfile{}, fmt.Errorf("scan profile: %w", err)
	}
	profile.CreatedAt = time.UnixMilli(createdAt)
	if profile.ImageURL != "" {
		if img, err := domain.ParseDataURL(profile.ImageURL); err == nil {
			profile.Image = img
		}
	}
	return profile, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, profile domain.FaceProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (id, name, description, imageUrl, createdAt)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			imageUrl = excluded.imageUrl,
			createdAt = excluded.createdAt
	`, profile.Name, profile.Description, profile.ImageURL, profile.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearProfile(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profile`); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Memories(ctx context.Context) ([]domain.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, timestamp
		FROM memories
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	memories := []domain.MemoryItem{}
	for rows.Next() {
		var m domain.MemoryItem
		var ts int64
		if err := rows.Scan(&m.ID, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Timestamp = time.UnixMilli(ts)
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *SQLiteStore) AddMemory(ctx context.Context, item domain.MemoryItem, limit int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memories (id, content, timestamp) VALUES (?, ?, ?)
	`, item.ID, item.Content, item.Timestamp.UnixMilli()); err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	if limit > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM memories
			WHERE seq NOT IN (SELECT seq FROM memories ORDER BY seq DESC LIMIT ?)
		`, limit); err != nil {
			return fmt.Errorf("prune memories: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ClearMemories(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return fmt.Errorf("delete memories: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
