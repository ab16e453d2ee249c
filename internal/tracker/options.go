package tracker

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/model"
)

// Option configures a Store.
type Option func(*Store)

// WithKey sets the durable slot key. Defaults to model.DefaultStorageKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the uuid-based id source.
func WithIDGenerator(gen func() model.ID) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSeed sets the collection used when the slot is empty or unreadable.
func WithSeed(items []model.Technology) Option {
	return func(s *Store) {
		s.seed = items
	}
}

func newUUID() model.ID {
	return model.ID(uuid.New().String())
}
