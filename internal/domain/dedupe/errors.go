package dedupe

import "errors"

var (
	// ErrEmptyID is returned when a delivery carries no identifier.
	ErrEmptyID = errors.New("empty delivery id")
	// ErrNilClient is returned when the Redis deduper is built without a client.
	ErrNilClient = errors.New("redis client is nil")
	// ErrBackend wraps failures talking to the shared store.
	ErrBackend = errors.New("dedupe backend failure")
)
