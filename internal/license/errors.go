package license

import "errors"

var (
	// ErrLicenseInvalid is returned when the underlying license itself is
	// invalid or expired. No slot is consumed.
	ErrLicenseInvalid = errors.New("license: license invalid or expired")

	// ErrReleaseWithoutAcquire is returned by Release when no matching
	// acquisition is outstanding. This is a protocol error in the caller.
	ErrReleaseWithoutAcquire = errors.New("license: release without matching acquire")

	// ErrAcquireTimeout is returned by WithLicense when no slot became
	// available within the configured timeout.
	ErrAcquireTimeout = errors.New("license: timed out waiting for a license slot")
)
