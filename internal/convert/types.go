package convert

import "context"

// State identifies a node of the conversion state machine.
type State int

const (
	Pending State = iota
	ConvertingViaSDK
	FallbackToOCR
	ConvertingViaOCR
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case ConvertingViaSDK:
		return "converting_via_sdk"
	case FallbackToOCR:
		return "fallback_to_ocr"
	case ConvertingViaOCR:
		return "converting_via_ocr"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Processor names the extraction path that produced a Result.
type Processor string

const (
	ProcessorSDK Processor = "sdk"
	ProcessorOCR Processor = "ocr"
)

// Input describes one file to convert.
type Input struct {
	WorkItemID  string
	Path        string // local path to the downloaded file
	Locator     string // source object locator, for logs and faults
	ContentType string // declared MIME type from the event metadata
}

// Result is the immutable outcome of a successful conversion.
type Result struct {
	WorkItemID string
	Text       string
	PageCount  int
	Processor  Processor

	// SDKErr records the licensed-path failure when the OCR fallback
	// produced the result. Kept for observability; it did not fail the
	// work item.
	SDKErr error
}

// Extraction is what both extraction backends return.
type Extraction struct {
	Text      string
	PageCount int
}

// SDKProcessor is the licensed fast path (a commercial converter SDK or
// its sidecar service).
type SDKProcessor interface {
	ExtractText(ctx context.Context, path string) (*Extraction, error)
}

// OCREngine is the fallback path. Its internals are opaque; the
// pipeline only depends on this contract.
type OCREngine interface {
	Recognize(ctx context.Context, path string) (*Extraction, error)
}

// Logger is the subset of the logger used by this package.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}
