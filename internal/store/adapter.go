package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/transfer"
)

// Adapter mirrors a technology collection into a Slot using the canonical
// envelope encoding. It remembers the bytes it last exchanged per key so
// that writes from other processes can be told apart from its own.
type Adapter struct {
	slot   Slot
	logger *zap.Logger

	mu   sync.Mutex
	seen map[string][]byte
}

// NewAdapter wraps slot. A nil logger discards output.
func NewAdapter(slot Slot, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		slot:   slot,
		logger: logger.Named("store"),
		seen:   make(map[string][]byte),
	}
}

// Load returns the collection stored under key. A missing, unreadable or
// malformed slot yields def; the failure is logged and never returned.
func (a *Adapter) Load(ctx context.Context, key string, def []model.Technology) []model.Technology {
	data, err := a.slot.Get(ctx, key)
	if errors.Is(err, ErrSlotEmpty) {
		a.logger.Debug("slot empty, using defaults", zap.String("key", key))
		a.remember(key, nil)
		return def
	}
	if err != nil {
		a.logger.Warn("reading slot failed, using defaults", zap.String("key", key), zap.Error(err))
		return def
	}

	items, err := transfer.Decode(data)
	if err != nil {
		a.logger.Warn("slot holds malformed data, using defaults", zap.String("key", key), zap.Error(err))
		return def
	}

	a.remember(key, data)
	return items
}

// Save writes the full collection under key. Failures wrap
// model.ErrPersistence.
func (a *Adapter) Save(ctx context.Context, key string, items []model.Technology) error {
	data, err := transfer.Encode(items)
	if err != nil {
		return fmt.Errorf("saving %s: %v: %w", key, err, model.ErrPersistence)
	}
	if err := a.slot.Set(ctx, key, data); err != nil {
		a.logger.Error("writing slot failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("saving %s: %v: %w", key, err, model.ErrPersistence)
	}
	a.remember(key, data)
	return nil
}

// Remove clears the slot under key.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.slot.Remove(ctx, key); err != nil {
		return fmt.Errorf("removing %s: %v: %w", key, err, model.ErrPersistence)
	}
	a.remember(key, nil)
	return nil
}

// Changed re-reads key and reports whether another writer replaced the value
// since this adapter last loaded or saved it. When it did, the new collection
// is returned. A removed slot reads as an empty collection.
func (a *Adapter) Changed(ctx context.Context, key string) ([]model.Technology, bool, error) {
	data, err := a.slot.Get(ctx, key)
	if errors.Is(err, ErrSlotEmpty) {
		data, err = nil, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("checking %s: %w", key, err)
	}

	a.mu.Lock()
	prev, known := a.seen[key]
	a.mu.Unlock()
	if known && bytes.Equal(prev, data) {
		return nil, false, nil
	}

	if data == nil {
		a.remember(key, nil)
		return []model.Technology{}, true, nil
	}

	items, err := transfer.Decode(data)
	if err != nil {
		a.logger.Warn("ignoring malformed foreign write", zap.String("key", key), zap.Error(err))
		a.remember(key, data)
		return nil, false, err
	}

	a.remember(key, data)
	a.logger.Info("slot changed by another writer", zap.String("key", key), zap.Int("count", len(items)))
	return items, true, nil
}

func (a *Adapter) remember(key string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen[key] = data
}
