// Package archive collects high-scoring candidates across a run for later
// inspection and packaging. The archive is owned by the caller and threaded
// through the evaluator explicitly; there is no process-wide registry.
package archive

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is one archived candidate: its rendered text plus scoring context.
type Entry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`    // which run/domain produced it
	Content   string    `json:"content"`   // the gene's rendered text
	Score     float64   `json:"score"`     // fitness at archival time
	CreatedAt time.Time `json:"created_at"`
}

// Archive stores candidate entries.
type Archive interface {
	Add(ctx context.Context, entry Entry) error
	// Top returns up to n entries ordered descending by score.
	Top(ctx context.Context, n int) ([]Entry, error)
	// Len reports the number of stored entries.
	Len(ctx context.Context) (int, error)
}

// MemoryArchive is a mutex-guarded in-process archive.
type MemoryArchive struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

func (a *MemoryArchive) Add(ctx context.Context, entry Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *MemoryArchive) Top(ctx context.Context, n int) ([]Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sorted := make([]Entry, len(a.entries))
	copy(sorted, a.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n], nil
}

func (a *MemoryArchive) Len(ctx context.Context) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries), nil
}
