// Package columnstore defines the generic wide-column interface the
// token record adapter is built on: a key addresses one logical row,
// and each named column within that row carries its own time-to-live.
//
// This mirrors a real wide-column store's column-family model (the
// concrete store is an external collaborator per the token service's
// scope) closely enough that either of the two implementations here
// can stand in for it in tests and small deployments.
package columnstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by GetColumns when the row has no columns at
// all, as distinct from the row existing but some requested columns
// being absent (the latter is represented by their simple absence from
// the returned map).
var ErrNotFound = errors.New("columnstore: row not found")

// Store is the collaborator interface described in the external
// interfaces section: set a batch of columns on a row with a shared
// TTL, and read back a named subset of columns.
type Store interface {
	// SetColumns writes columns to rowKey as a single batch, each
	// column expiring ttl after the call.
	SetColumns(ctx context.Context, rowKey [16]byte, columns map[string][]byte, ttl time.Duration) error

	// GetColumns reads the named columns from rowKey. Columns that
	// don't exist (never written, or expired) are simply absent from
	// the result map; ErrNotFound is returned only when the row itself
	// has no surviving columns at all.
	GetColumns(ctx context.Context, rowKey [16]byte, names []string) (map[string][]byte, error)
}
