// Package persistence stores opaque snapshots in a single durable key/value slot.
package persistence

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Read when nothing has been stored under the key.
var ErrSlotEmpty = errors.New("persistence: slot is empty")

// Slot is a single named durable value.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Remove(ctx context.Context) error
}
