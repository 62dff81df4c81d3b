package queue

import "errors"

var (
	// ErrConnectionClosed is returned when an operation is attempted on
	// a closed broker connection.
	ErrConnectionClosed = errors.New("queue: connection closed")

	// ErrAlreadySettled is returned when a delivery is acked, requeued,
	// or dead-lettered more than once.
	ErrAlreadySettled = errors.New("queue: delivery already settled")
)
