// Package bookmarks keeps named view states in a local SQLite database.
package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no bookmark has the requested name.
	ErrNotFound = errors.New("bookmark not found")
	// ErrEmptyName is returned when saving a bookmark without a name.
	ErrEmptyName = errors.New("bookmark name is empty")
)

const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	state      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Bookmark is a named view state such as "block=/A/B/C#1 block_create_since=48".
type Bookmark struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a bookmark database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating bookmark directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open bookmarks: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing bookmarks: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores state under name, replacing the state of an existing
// bookmark with that name.
func (s *Store) Save(ctx context.Context, name, state string) (Bookmark, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Bookmark{}, ErrEmptyName
	}
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, name, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		uuid.NewString(), name, strings.TrimSpace(state), now, now)
	if err != nil {
		return Bookmark{}, fmt.Errorf("saving bookmark %q: %w", name, err)
	}
	return s.Get(ctx, name)
}

// Get returns the bookmark called name.
func (s *Store) Get(ctx context.Context, name string) (Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, state, created_at, updated_at FROM bookmarks WHERE name = ?`,
		strings.TrimSpace(name))
	b, err := scanBookmark(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Bookmark{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Bookmark{}, fmt.Errorf("loading bookmark %q: %w", name, err)
	}
	return b, nil
}

// List returns all bookmarks ordered by name.
func (s *Store) List(ctx context.Context) ([]Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, state, created_at, updated_at FROM bookmarks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("listing bookmarks: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes the bookmark called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("deleting bookmark %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

func scanBookmark(scan func(...any) error) (Bookmark, error) {
	var (
		b                Bookmark
		created, updated int64
	)
	if err := scan(&b.ID, &b.Name, &b.State, &created, &updated); err != nil {
		return Bookmark{}, err
	}
	b.CreatedAt = time.Unix(0, created).UTC()
	b.UpdatedAt = time.Unix(0, updated).UTC()
	return b, nil
}
