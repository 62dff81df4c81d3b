// Package convert extracts text from downloaded documents.
//
// Conversion is a small state machine:
//
//	Pending → ConvertingViaSDK → {Success | FallbackToOCR}
//	                       FallbackToOCR → ConvertingViaOCR → {Success | Failed}
//
// The SDK path is the licensed fast path: entering ConvertingViaSDK
// acquires a slot from the license gate, and the slot is released before
// leaving any SDK-related state regardless of outcome. An SDK failure is
// not an error that crosses the component boundary; it becomes a typed
// transition into the OCR fallback, with the SDK error recorded on the
// Result for observability.
//
// Zero-byte files, unsupported formats, and declared-type/file-signature
// mismatches fail fast and terminally. OCR transport errors are
// transient and retryable.
package convert
