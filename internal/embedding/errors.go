package embedding

import "errors"

var (
	// ErrOversizedInput marks content rejected by the local byte
	// ceiling before any remote call.
	ErrOversizedInput = errors.New("embedding: input exceeds payload ceiling")

	// ErrBadGeometry marks a response vector that violates the model
	// contract (wrong dimension, non-finite, degenerate, denormalized).
	ErrBadGeometry = errors.New("embedding: response vector violates model geometry")
)
