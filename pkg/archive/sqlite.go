package archive

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/step2-technology/ga-llm-search/pkg/errors"
)

// SQLiteArchive persists candidate entries in a SQLite database so archived
// material survives the process. The path ":memory:" keeps the database
// in-memory, which the tests use.
type SQLiteArchive struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// NewSQLiteArchive opens (creating if needed) the archive database at path.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Persistence, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	a := &SQLiteArchive{db: db, path: path}
	if err := a.ensureInitialized(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SQLiteArchive) ensureInitialized() error {
	var initErr error
	a.initialized.Do(func() {
		// Enable WAL mode for better concurrency
		if _, err := a.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.Persistence, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS candidate_archive (
            id TEXT PRIMARY KEY,
            source TEXT NOT NULL,
            content TEXT NOT NULL,
            score REAL NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );

        CREATE INDEX IF NOT EXISTS idx_candidate_archive_score
        ON candidate_archive(score);
        `

		if _, err := a.db.Exec(query); err != nil {
			initErr = errors.WithFields(
				errors.Wrap(err, errors.Persistence, "failed to initialize database"),
				errors.Fields{"query": query},
			)
			return
		}
	})
	return initErr
}

func (a *SQLiteArchive) Add(ctx context.Context, entry Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx,
		"INSERT INTO candidate_archive (id, source, content, score, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, entry.Source, entry.Content, entry.Score, entry.CreatedAt,
	)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Persistence, "failed to insert archive entry"),
			errors.Fields{"id": entry.ID},
		)
	}
	return nil
}

func (a *SQLiteArchive) Top(ctx context.Context, n int) ([]Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx,
		"SELECT id, source, content, score, created_at FROM candidate_archive ORDER BY score DESC LIMIT ?", n)
	if err != nil {
		return nil, errors.Wrap(err, errors.Persistence, "failed to query archive")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Source, &e.Content, &e.Score, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.Persistence, "failed to scan archive entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *SQLiteArchive) Len(ctx context.Context) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var count int
	err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM candidate_archive").Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.Persistence, "failed to count archive entries")
	}
	return count, nil
}

// Close releases the underlying database handle.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
