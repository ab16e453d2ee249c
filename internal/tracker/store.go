// Package tracker owns the authoritative technology collection. Every
// mutation is mirrored to the Persister before it returns.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/stats"
	"github.com/nhle/tech-tracker/internal/transfer"
	"github.com/nhle/tech-tracker/internal/validation"
)

// Persister mirrors the collection into durable storage.
type Persister interface {
	Load(ctx context.Context, key string, def []model.Technology) []model.Technology
	Save(ctx context.Context, key string, items []model.Technology) error
	Changed(ctx context.Context, key string) ([]model.Technology, bool, error)
}

// Store is the in-memory collection, newest first.
type Store struct {
	mu    sync.Mutex
	items []model.Technology

	persist Persister
	key     string
	seed    []model.Technology
	now     func() time.Time
	newID   func() model.ID
	logger  *zap.Logger
}

// New loads the collection from p and returns a ready Store.
func New(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		key:     model.DefaultStorageKey,
		now:     time.Now,
		newID:   newUUID,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("tracker")

	loaded := p.Load(ctx, s.key, cloneAll(s.seed))
	s.items = s.normalizeAll(loaded)
	s.logger.Debug("collection loaded", zap.String("key", s.key), zap.Int("count", len(s.items)))
	return s
}

// Key returns the durable slot key the store writes to.
func (s *Store) Key() string {
	return s.key
}

// commit writes the full collection. Callers hold s.mu. The in-memory state
// is kept even when the write fails.
func (s *Store) commit(ctx context.Context, op string) error {
	if err := s.persist.Save(ctx, s.key, s.items); err != nil {
		s.logger.Warn("collection not persisted", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Add stores a new technology built from d. Zero-valued optional fields take
// their defaults. The new record is placed first. An unknown enum value in d
// fails with model.ErrInvalidValue before anything changes.
func (s *Store) Add(ctx context.Context, d model.Draft) (model.Technology, error) {
	if err := checkDraftEnums(d); err != nil {
		return model.Technology{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := model.Technology{
		ID:             s.uniqueID(),
		Title:          strings.TrimSpace(d.Title),
		Description:    strings.TrimSpace(d.Description),
		Category:       d.Category,
		Difficulty:     d.Difficulty,
		Status:         d.Status,
		Priority:       d.Priority,
		Tags:           model.NormalizeTags(d.Tags),
		Notes:          d.Notes,
		EstimatedHours: d.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if d.Deadline != nil {
		day := model.Day(*d.Deadline)
		t.Deadline = &day
	}
	applyDefaults(&t)

	s.items = append([]model.Technology{t}, s.items...)
	s.logger.Info("technology added", zap.String("id", string(t.ID)), zap.String("title", t.Title))
	return t.Clone(), s.commit(ctx, "adding technology")
}

// Create validates d and adds it. Violations are returned as a
// *model.ValidationError and nothing is stored.
func (s *Store) Create(ctx context.Context, d model.Draft, strict bool) (model.Technology, error) {
	if v := validation.Validate(d, s.now(), strict); len(v) > 0 {
		return model.Technology{}, &model.ValidationError{Violations: v}
	}
	return s.Add(ctx, d)
}

// Edit checks the record as it would look after p, then applies p. Only the
// fields p sets are checked, so an imported record with short text can still
// be edited elsewhere. Violations are returned as a *model.ValidationError
// and nothing changes.
func (s *Store) Edit(ctx context.Context, id model.ID, p model.Patch, strict bool) (model.Technology, error) {
	current, err := s.Get(id)
	if err != nil {
		return model.Technology{}, err
	}
	if v := patchViolations(current, p, s.now(), strict); len(v) > 0 {
		return model.Technology{}, &model.ValidationError{Violations: v}
	}
	return s.Update(ctx, id, p)
}

// Update merges p into the record with the given id.
func (s *Store) Update(ctx context.Context, id model.ID, p model.Patch) (model.Technology, error) {
	if err := checkPatchEnums(p); err != nil {
		return model.Technology{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Technology{}, fmt.Errorf("updating technology %s: %w", id, model.ErrNotFound)
	}

	t := &s.items[i]
	applyPatch(t, p)
	s.touch(t)

	s.logger.Info("technology updated", zap.String("id", string(id)))
	return t.Clone(), s.commit(ctx, "updating technology "+string(id))
}

// UpdateStatus sets the status of the record with the given id. An unknown
// status fails with model.ErrInvalidValue and leaves the record unchanged.
func (s *Store) UpdateStatus(ctx context.Context, id model.ID, status model.Status) (model.Technology, error) {
	if !status.Valid() {
		return model.Technology{}, fmt.Errorf("setting status of %s to %q: %w", id, status, model.ErrInvalidValue)
	}
	return s.Update(ctx, id, model.Patch{Status: &status})
}

// AdvanceStatus moves the record one step along the status cycle.
func (s *Store) AdvanceStatus(ctx context.Context, id model.ID) (model.Technology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Technology{}, fmt.Errorf("advancing technology %s: %w", id, model.ErrNotFound)
	}

	t := &s.items[i]
	t.Status = t.Status.Next()
	s.touch(t)

	s.logger.Info("status advanced", zap.String("id", string(id)), zap.String("status", string(t.Status)))
	return t.Clone(), s.commit(ctx, "advancing technology "+string(id))
}

// UpdateNotes replaces the notes of the record with the given id.
func (s *Store) UpdateNotes(ctx context.Context, id model.ID, notes string) (model.Technology, error) {
	return s.Update(ctx, id, model.Patch{Notes: &notes})
}

// Delete removes the record with the given id. A missing id is a no-op and
// writes nothing.
func (s *Store) Delete(ctx context.Context, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)

	s.logger.Info("technology deleted", zap.String("id", string(id)))
	return s.commit(ctx, "deleting technology "+string(id))
}

// DeleteAll empties the collection.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	s.items = []model.Technology{}

	s.logger.Info("collection cleared", zap.Int("removed", n))
	return s.commit(ctx, "deleting all technologies")
}

// MarkAllCompleted sets every record to completed.
func (s *Store) MarkAllCompleted(ctx context.Context) error {
	return s.setAll(ctx, model.StatusCompleted, "marking all completed")
}

// ResetAll sets every record back to not-started.
func (s *Store) ResetAll(ctx context.Context) error {
	return s.setAll(ctx, model.StatusNotStarted, "resetting all statuses")
}

func (s *Store) setAll(ctx context.Context, status model.Status, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].Status = status
		s.touch(&s.items[i])
	}

	s.logger.Info("bulk status change", zap.String("status", string(status)), zap.Int("count", len(s.items)))
	return s.commit(ctx, op)
}

// ImportReplace replaces the whole collection with items. Missing ids,
// statuses, timestamps and other defaults are filled in; ids that collide
// are regenerated. An entry without a title fails with
// model.ErrInvalidFormat and nothing changes.
func (s *Store) ImportReplace(ctx context.Context, items []model.Technology) (int, error) {
	if err := checkImportable(items); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = s.normalizeAll(cloneAll(items))

	s.logger.Info("collection replaced by import", zap.Int("count", len(s.items)))
	return len(s.items), s.commit(ctx, "importing technologies")
}

// ImportMerge folds items into the collection. An incoming record whose id
// matches an existing one replaces it in place and keeps the original
// createdAt; the rest are appended in input order. An id repeated within
// items only matches once; later repeats get a fresh id. It returns the
// number of records added or replaced.
func (s *Store) ImportMerge(ctx context.Context, items []model.Technology) (int, error) {
	if err := checkImportable(items); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	seen := make(map[model.ID]bool, len(items))
	n := 0
	for _, in := range cloneAll(items) {
		if in.ID != "" && !seen[in.ID] {
			if i := s.indexOf(in.ID); i >= 0 {
				in.CreatedAt = s.items[i].CreatedAt
				s.normalize(&in, now)
				s.touch(&in)
				s.items[i] = in
				seen[in.ID] = true
				n++
				continue
			}
		}
		if seen[in.ID] {
			in.ID = ""
		}
		s.normalize(&in, now)
		if in.ID == "" {
			in.ID = s.uniqueID()
		}
		seen[in.ID] = true
		s.items = append(s.items, in)
		n++
	}

	s.logger.Info("technologies merged from import", zap.Int("count", n))
	return n, s.commit(ctx, "merging technologies")
}

// Import decodes data (envelope or bare array) and replaces or merges it
// into the collection.
func (s *Store) Import(ctx context.Context, data []byte, merge bool) (int, error) {
	items, err := transfer.Decode(data)
	if err != nil {
		return 0, err
	}
	if merge {
		return s.ImportMerge(ctx, items)
	}
	return s.ImportReplace(ctx, items)
}

// Now reads the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Get returns the record with the given id.
func (s *Store) Get(id model.ID) (model.Technology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Technology{}, fmt.Errorf("getting technology %s: %w", id, model.ErrNotFound)
	}
	return s.items[i].Clone(), nil
}

// All returns a copy of the collection in stored order.
func (s *Store) All() []model.Technology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.items)
}

// Len returns the collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats recomputes the statistics of the current collection.
func (s *Store) Stats() stats.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.Compute(s.items, s.now())
}

// Sync adopts a collection written to the slot by another process. It
// reports whether the in-memory state was replaced. Last write wins.
func (s *Store) Sync(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, changed, err := s.persist.Changed(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("syncing %s: %w", s.key, err)
	}
	if !changed {
		return false, nil
	}

	s.items = s.normalizeAll(items)
	s.logger.Info("collection reloaded from foreign write", zap.Int("count", len(s.items)))
	return true, nil
}

func (s *Store) indexOf(id model.ID) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueID() model.ID {
	for {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id
		}
	}
}

// touch stamps updatedAt, never earlier than createdAt.
func (s *Store) touch(t *model.Technology) {
	now := s.now()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

func cloneAll(items []model.Technology) []model.Technology {
	if items == nil {
		return nil
	}
	out := make([]model.Technology, len(items))
	for i, t := range items {
		out[i] = t.Clone()
	}
	return out
}
