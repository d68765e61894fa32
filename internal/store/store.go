// Package store persists full story content in PostgreSQL so the digest can
// link back to the complete article text. Storage is best effort: with no
// database configured the pipeline still runs, stories just carry no
// storage reference.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"ainews/internal/logger"
	"ainews/internal/retry"
	"ainews/internal/story"
)

// MaxContentBytes caps stored article text. Longer content is cut on a rune
// boundary and marked with a truncation notice.
const MaxContentBytes = 300 << 10

const truncationNotice = "\n\n(내용이 너무 길어 일부가 잘렸습니다)"

// Store writes and reads full story content. A nil *Store is valid and
// makes every Put report StorageNone.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and ensures the schema exists. An empty
// connection string returns (nil, nil): storage disabled, not an error.
func Open(connectionString string) (*Store, error) {
	if connectionString == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("content store connected")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS story_contents (
		id UUID PRIMARY KEY,
		content_key VARCHAR(64) UNIQUE NOT NULL,
		headline TEXT NOT NULL,
		link TEXT,
		content TEXT NOT NULL,
		length INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_story_contents_key ON story_contents(content_key);
	CREATE INDEX IF NOT EXISTS idx_story_contents_created_at ON story_contents(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores the full content of st and returns the storage reference.
// The same story stored twice returns the first id. Any failure degrades
// to StorageNone instead of failing the run.
func (s *Store) Put(ctx context.Context, st *story.Story) (string, story.StorageMethod) {
	if s == nil || s.db == nil {
		return "", story.StorageNone
	}
	if strings.TrimSpace(st.FullContent) == "" {
		return "", story.StorageNone
	}

	key := contentKey(st)

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM story_contents WHERE content_key = $1`, key).Scan(&existing)
	switch {
	case err == nil:
		return existing, story.StorageDatabase
	case !errors.Is(err, sql.ErrNoRows):
		logger.Warn("content store lookup failed", "error", err)
		return "", story.StorageNone
	}

	id := uuid.NewString()
	content, length := storedContent(st.FullContent)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO story_contents (id, content_key, headline, link, content, length)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (content_key) DO NOTHING`,
		id, key, st.Headline, st.Link, content, length)
	if err != nil {
		logger.Warn("content store insert failed", "error", err)
		return "", story.StorageNone
	}

	// A concurrent insert may have won the conflict; read back the id that
	// actually landed.
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM story_contents WHERE content_key = $1`, key).Scan(&existing); err == nil {
		return existing, story.StorageDatabase
	}
	return id, story.StorageDatabase
}

// Get reads stored content by id, retrying transient failures. Ids written
// before the key scheme change are found by the legacy link hash.
func (s *Store) Get(ctx context.Context, id string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("content store not configured")
	}

	var content string
	err := retry.Do(ctx, retry.Config{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}, func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT content FROM story_contents WHERE id = $1`, id).Scan(&content)
		if errors.Is(err, sql.ErrNoRows) {
			// Old records were keyed by the raw link hash instead of a UUID.
			legacyErr := s.db.QueryRowContext(ctx,
				`SELECT content FROM story_contents WHERE content_key = $1`, id).Scan(&content)
			if legacyErr != nil {
				return &retry.Permanent{Err: fmt.Errorf("content %s not found", id)}
			}
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Truncate cuts content to MaxContentBytes on a rune boundary and appends
// the truncation notice.
func Truncate(content string) string {
	if len(content) <= MaxContentBytes {
		return content
	}
	cut := MaxContentBytes
	for cut > 0 && !utf8StartByte(content[cut]) {
		cut--
	}
	return content[:cut] + truncationNotice
}

func utf8StartByte(b byte) bool {
	return b&0xC0 != 0x80
}

// storedContent returns the content as persisted and its byte length.
// The length reflects what landed in the row, not the original size.
func storedContent(full string) (string, int) {
	content := Truncate(full)
	return content, len(content)
}

// contentKey derives the idempotency key. Links are the stable identity;
// headline plus date is the fallback for link-less stories.
func contentKey(st *story.Story) string {
	base := strings.ToLower(strings.TrimSpace(st.Link))
	if base == "" {
		base = strings.TrimSpace(st.Headline) + "|" + strings.TrimSpace(st.DatePosted)
	}
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}
