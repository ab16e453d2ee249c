// Package store holds the durable key/value slots that mirror the tracker's
// collection, plus the Adapter that serializes the collection into them.
package store

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Slot.Get when nothing is stored under the key.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a named, durable key/value location. Values are opaque bytes.
type Slot interface {
	// Get returns the stored value or ErrSlotEmpty.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
