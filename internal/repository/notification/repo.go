// Package notification provides the durable store for reminder records.
//
// The whole record set lives in a single JSON file. Every mutation rewrites
// the file through a temp-file-plus-rename, so a crash at any point leaves
// either the previous or the fully written state on disk, never a torn one.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkazakov/reminderd/internal/model"
)

// ErrStorageCorrupt indicates the backing file exists but cannot be parsed.
// It is surfaced instead of an empty record set so data loss never goes
// unnoticed.
var ErrStorageCorrupt = errors.New("notification storage corrupt")

// Repository is the single source of truth for notification records.
//
// Readers may run concurrently with each other; mutations hold the write
// lock, so a reader never observes a half-applied update.
type Repository struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewRepository opens (or initializes) the store backed by the given file.
//
// The parent directory is created if missing. An existing file is parsed
// once up front so corruption is reported at boot rather than on the first
// scheduler tick.
func NewRepository(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	r := &Repository{path: path, now: time.Now}

	if _, err := r.readAll(); err != nil {
		return nil, err
	}

	return r, nil
}

// CreateNotification appends a new pending record and persists the full set.
func (r *Repository) CreateNotification(ctx context.Context, subject, text string, dueAt time.Time) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return model.Notification{}, err
	}

	n := model.Notification{
		ID:        uuid.New(),
		Subject:   subject,
		Text:      text,
		DueAt:     dueAt,
		Status:    model.StatusPending,
		CreatedAt: r.now().UTC(),
	}

	all = append(all, n)

	if err := r.writeAll(all); err != nil {
		return model.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// GetBySubject returns all pending notifications for a subject, earliest
// due first.
func (r *Repository) GetBySubject(ctx context.Context, subject string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}

	var out []model.Notification
	for _, n := range all {
		if n.Subject == subject && n.Status == model.StatusPending {
			out = append(out, n)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })

	return out, nil
}

// GetDue returns all pending notifications whose due instant is at or
// before asOf. Results are ordered by ID so identical store contents always
// yield the same sequence.
func (r *Repository) GetDue(ctx context.Context, asOf time.Time) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}

	var out []model.Notification
	for _, n := range all {
		if n.Status == model.StatusPending && !n.DueAt.After(asOf) {
			out = append(out, n)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	return out, nil
}

// MarkDelivered sets the record's status to delivered and persists the set.
//
// Calling it for an unknown or already delivered ID is a no-op: a delivery
// confirmation may race with a later explicit check, which must not fail.
func (r *Repository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return err
	}

	changed := false
	for i := range all {
		if all[i].ID == id && all[i].Status != model.StatusDelivered {
			all[i].Status = model.StatusDelivered
			changed = true
		}
	}

	if !changed {
		return nil
	}

	if err := r.writeAll(all); err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}

	return nil
}

// readAll loads the full record set. A missing file is an empty store; a
// file that exists but does not parse is corruption and is reported as such,
// never swallowed.
func (r *Repository) readAll() ([]model.Notification, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read storage file: %w", err)
	}

	var all []model.Notification
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, r.path, err)
	}

	return all, nil
}

// writeAll replaces the backing file atomically: marshal to a temp file in
// the same directory, fsync, then rename over the old state.
func (r *Repository) writeAll(all []model.Notification) error {
	if all == nil {
		all = []model.Notification{}
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".notifications-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace storage file: %w", err)
	}

	return nil
}
