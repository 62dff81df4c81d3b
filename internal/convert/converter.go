package convert

import (
	"context"
	"fmt"
	"os"

	"github.com/cisearch/ingest/internal/fault"
	"github.com/cisearch/ingest/internal/license"
)

// Converter drives the conversion state machine for one input at a
// time. It is safe for concurrent use; each Convert call is an
// independent state-machine instance.
type Converter struct {
	licenses *license.Manager
	sdk      SDKProcessor
	ocr      OCREngine
	log      Logger
	cfg      Config
}

// NewConverter constructs a Converter over the given backends.
func NewConverter(cfg Config, licenses *license.Manager, sdk SDKProcessor, ocr OCREngine, log Logger) *Converter {
	return &Converter{
		licenses: licenses,
		sdk:      sdk,
		ocr:      ocr,
		log:      log,
		cfg:      cfg,
	}
}

// Convert extracts text from the input file. It always terminates in
// Success (returning a Result) or Failed (returning a classified
// fault), never unresolved.
func (c *Converter) Convert(ctx context.Context, in Input) (*Result, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}

	// ConvertingViaSDK: the licensed fast path. The license slot is held
	// only for the duration of the SDK call and released on every exit
	// path before the fallback decision.
	var extraction *Extraction
	sdkErr := c.licenses.WithLicense(ctx, c.cfg.LicenseTimeout, func(ctx context.Context) error {
		ex, err := c.sdk.ExtractText(ctx, in.Path)
		if err != nil {
			return err
		}
		extraction = ex
		return nil
	})

	if sdkErr == nil {
		c.log.Info("converted via licensed sdk", nil, map[string]interface{}{
			"work_item_id": in.WorkItemID,
			"page_count":   extraction.PageCount,
		})
		return &Result{
			WorkItemID: in.WorkItemID,
			Text:       extraction.Text,
			PageCount:  extraction.PageCount,
			Processor:  ProcessorSDK,
		}, nil
	}

	// A license slot that never became available is not an SDK failure:
	// the work item is retryable as-is and must not burn an OCR pass.
	if fault.KindOf(sdkErr) == fault.ResourceExhausted {
		return nil, sdkErr
	}

	// FallbackToOCR: the SDK error is recorded, not propagated. It fails
	// the work item only if OCR also fails.
	c.log.Warn("sdk conversion failed, falling back to ocr", sdkErr, map[string]interface{}{
		"work_item_id": in.WorkItemID,
		"locator":      in.Locator,
	})

	extraction, ocrErr := c.ocr.Recognize(ctx, in.Path)
	if ocrErr != nil {
		// Transient: OCR transport failures are retryable.
		return nil, fault.New(fault.Transient, "converting",
			fmt.Errorf("ocr failed after sdk fallback (sdk error: %v): %w", sdkErr, ocrErr),
		).WithLocator(in.Locator)
	}

	return &Result{
		WorkItemID: in.WorkItemID,
		Text:       extraction.Text,
		PageCount:  extraction.PageCount,
		Processor:  ProcessorOCR,
		SDKErr:     sdkErr,
	}, nil
}

// validate fails fast and terminally on inputs that can never convert:
// zero-byte files, unsupported declared types, and files whose magic
// bytes contradict their declared type.
func (c *Converter) validate(in Input) error {
	info, err := os.Stat(in.Path)
	if err != nil || info.Size() == 0 {
		return fault.New(fault.Invalid, "converting", ErrZeroByteFile).WithLocator(in.Locator)
	}

	declared := declaredFormats(in.ContentType, in.Locator)
	if len(declared) == 0 {
		return fault.New(fault.Invalid, "converting",
			fmt.Errorf("%w: %q", ErrUnsupportedType, in.ContentType),
		).WithLocator(in.Locator)
	}

	sniffed, err := sniffFormat(in.Path)
	if err != nil {
		return fault.New(fault.Invalid, "converting", ErrZeroByteFile).WithLocator(in.Locator)
	}
	if !matchesDeclared(sniffed, declared) {
		return fault.New(fault.Invalid, "converting",
			fmt.Errorf("%w: declared %q, signature %q", ErrSignatureMismatch, in.ContentType, sniffed),
		).WithLocator(in.Locator)
	}
	return nil
}
