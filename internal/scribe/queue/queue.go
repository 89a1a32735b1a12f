// Package queue holds notes that could not be interpreted immediately, for
// example while the model API was unreachable. Entries survive restarts in a
// JSON file and drain strictly in arrival order: the head is retried and
// removed only after it applies cleanly, so a persistent failure stops the
// drain instead of skipping or reordering work.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one deferred note.
type Entry struct {
	ID        string    `json:"id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
	Attempts  int       `json:"attempts"`
}

// Queue is a durable FIFO of deferred notes.
type Queue struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

// Open loads the queue file, creating an empty queue when it does not exist.
func Open(path string) (*Queue, error) {
	q := &Queue{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	if len(data) == 0 {
		return q, nil
	}
	if err := json.Unmarshal(data, &q.entries); err != nil {
		return nil, fmt.Errorf("decode queue file %s: %w", path, err)
	}
	return q, nil
}

// persist writes the full entry list through a temp file and rename, holding
// q.mu.
func (q *Queue) persist() error {
	data, err := json.MarshalIndent(q.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	tmp := q.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

// Enqueue appends a note and persists it.
func (q *Queue) Enqueue(note string, now time.Time) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := Entry{ID: uuid.NewString(), Note: note, CreatedAt: now}
	q.entries = append(q.entries, e)
	if err := q.persist(); err != nil {
		q.entries = q.entries[:len(q.entries)-1]
		return Entry{}, err
	}
	return e, nil
}

// Len reports how many notes are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Pending returns a copy of the waiting entries in order.
func (q *Queue) Pending() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Entry(nil), q.entries...)
}

// Remove deletes one entry by id, for notes the user gave up on.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ID != id {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return q.persist()
	}
	return fmt.Errorf("queue entry %s not found", id)
}

// head returns a copy of the front entry.
func (q *Queue) head() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// ack removes the front entry if it still matches id.
func (q *Queue) ack(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 || q.entries[0].ID != id {
		return nil
	}
	q.entries = q.entries[1:]
	return q.persist()
}

// bumpAttempts records a failed try on the front entry.
func (q *Queue) bumpAttempts(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) > 0 && q.entries[0].ID == id {
		q.entries[0].Attempts++
		_ = q.persist()
	}
}

// Drain processes entries front to back until the queue is empty, apply
// fails, or the context ends. An entry is removed only after apply returns
// nil; on failure its attempt count is bumped and the drain stops with the
// error, leaving the remaining entries queued.
func (q *Queue) Drain(ctx context.Context, apply func(context.Context, Entry) error) (int, error) {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		e, ok := q.head()
		if !ok {
			return done, nil
		}
		if err := apply(ctx, e); err != nil {
			q.bumpAttempts(e.ID)
			return done, fmt.Errorf("apply queued note %s: %w", e.ID, err)
		}
		if err := q.ack(e.ID); err != nil {
			return done, err
		}
		done++
	}
}
