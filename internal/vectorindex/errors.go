package vectorindex

import "errors"

var (
	// ErrNoActiveGeneration means the alias points at nothing. The
	// index was never bootstrapped.
	ErrNoActiveGeneration = errors.New("vectorindex: alias has no active generation")

	// ErrUnknownGeneration marks an operation against a generation that
	// does not exist.
	ErrUnknownGeneration = errors.New("vectorindex: unknown generation")

	// ErrCountMismatch aborts a promote whose destination does not hold
	// every source document.
	ErrCountMismatch = errors.New("vectorindex: destination count does not match source")

	// ErrGenerationActive refuses to retire the generation the alias
	// currently points at.
	ErrGenerationActive = errors.New("vectorindex: generation is active")

	// ErrRetentionWindow refuses to retire a generation before its
	// retention window has passed.
	ErrRetentionWindow = errors.New("vectorindex: generation still inside retention window")

	// ErrBadCursor marks an undecodable pagination cursor.
	ErrBadCursor = errors.New("vectorindex: malformed cursor")
)
