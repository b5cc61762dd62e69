// Package store provides durable key-value backends for client sessions.
//
// A Store only knows about opaque string keys and values. Namespacing and
// serialization of session records is done by the caller (see portal.Session).
package store

import (
	"context"

	"github.com/goliatone/go-errors"
)

// TextCodeStoreFailure is attached to every backend failure.
const TextCodeStoreFailure = "STORE_FAILURE"

// ErrClosed is returned when a store is used after Close.
var ErrClosed = errors.New("store is closed", errors.CategoryInternal).
	WithTextCode("STORE_CLOSED").
	WithCode(errors.CodeInternal)

// Store persists string values under string keys.
//
// Get reports a missing key with ok == false and a nil error; errors are
// reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func wrapErr(err error, op, key string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.CategoryInternal, "store "+op+" failed").
		WithTextCode(TextCodeStoreFailure).
		WithMetadata(map[string]any{
			"key": key,
		})
}
