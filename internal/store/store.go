// Package store is the local sqlite cache: the last fetched timeline
// (shown before the first fetch lands), compose drafts, and the author
// directory that feeds handle search. It is a cache, not a source of
// truth; the PDS owns the data.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/perchapp/perch/internal/feed"
)

// Store wraps the cache database.
type Store struct {
	db *sql.DB
}

// Open opens sqlite with sensible defaults.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Author is a directory entry for handle search.
type Author struct {
	DID         string
	Handle      string
	DisplayName string
}

// Draft is a locally saved compose buffer.
type Draft struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// CacheTimeline replaces the cached timeline with posts, in order, and
// upserts every author into the directory.
func (s *Store) CacheTimeline(ctx context.Context, posts []feed.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_cache`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, post := range posts {
		payload, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("store: encode post %s: %w", post.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO timeline_cache (position, uri, payload, cached_at)
			VALUES (?, ?, ?, ?)
		`, i, post.ID, string(payload), now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO authors (did, handle, display_name, last_seen_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(did) DO UPDATE SET
				handle = excluded.handle,
				display_name = excluded.display_name,
				last_seen_at = excluded.last_seen_at
		`, post.Author.DID, post.Author.Handle, post.Author.DisplayName, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CachedTimeline returns the cached posts in their original order.
func (s *Store) CachedTimeline(ctx context.Context) ([]feed.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM timeline_cache ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []feed.Post
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var post feed.Post
		if err := json.Unmarshal([]byte(payload), &post); err != nil {
			return nil, fmt.Errorf("store: decode cached post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Authors lists the directory, most recently seen first.
func (s *Store) Authors(ctx context.Context) ([]Author, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT did, handle, display_name FROM authors ORDER BY last_seen_at DESC, handle ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.DID, &a.Handle, &a.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveDraft stores a compose buffer and returns its id.
func (s *Store) SaveDraft(ctx context.Context, text string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, text, created_at) VALUES (?, ?, ?)
	`, id, text, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return id, nil
}

// Drafts lists saved drafts, newest first.
func (s *Store) Drafts(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, created_at FROM drafts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		var d Draft
		var created string
		if err := rows.Scan(&d.ID, &d.Text, &created); err != nil {
			return nil, err
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDraft removes a draft; deleting a missing draft is not an error.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	return err
}
