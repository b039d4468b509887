package cache

import "errors"

// Domain errors for cache operations. A normal miss is never an error;
// these cover malformed input and backend failure classes.
var (
	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrEntryTooLarge is returned when a single entry exceeds a tier's
	// byte budget and eviction cannot free enough space.
	ErrEntryTooLarge = errors.New("entry exceeds tier capacity")

	// ErrTierUnavailable is returned when a tier backend cannot be reached.
	ErrTierUnavailable = errors.New("tier unavailable")

	// ErrCorruptEntry is returned when a stored payload fails to
	// decompress or deserialize.
	ErrCorruptEntry = errors.New("corrupt cache entry")

	// ErrConnectionFailed is returned when connection to a tier backend fails.
	ErrConnectionFailed = errors.New("cache connection failed")

	// ErrOperationTimeout is returned when a tier operation times out.
	ErrOperationTimeout = errors.New("cache operation timeout")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("cache store closed")
)
