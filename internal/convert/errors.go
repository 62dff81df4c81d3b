package convert

import "errors"

var (
	// ErrZeroByteFile marks an empty or unreadable input file.
	ErrZeroByteFile = errors.New("convert: zero-byte or unreadable file")

	// ErrUnsupportedType marks a declared content type the pipeline
	// does not convert.
	ErrUnsupportedType = errors.New("convert: unsupported content type")

	// ErrSignatureMismatch marks a file whose magic bytes contradict
	// its declared content type.
	ErrSignatureMismatch = errors.New("convert: file signature does not match declared type")
)
