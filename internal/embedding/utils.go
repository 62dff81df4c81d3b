package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cisearch/ingest/internal/fault"
)

// postJSON sends an HTTP POST request to the inference API.
// It marshals the given body as JSON, attaches required headers,
// classifies HTTP error codes into faults, and decodes the response
// JSON into `out`.
func (p *InferenceProvider) postJSON(ctx context.Context, url string, body any, out any) error {

	data, err := json.Marshal(body)
	if err != nil {
		return fault.New(fault.Invalid, "embedding", fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fault.New(fault.Invalid, "embedding", fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if p.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.serviceToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection errors are retryable.
		return fault.New(fault.Transient, "embedding", fmt.Errorf("http error: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, url, resp.Body)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fault.New(fault.Invalid, "embedding", fmt.Errorf("decode response: %w", err))
		}
	}

	return nil
}

// classifyStatus maps an HTTP error status to a fault kind. Rate
// limiting is resource exhaustion, server-side failures are transient,
// everything else in the 4xx range means the request itself can never
// succeed.
func classifyStatus(status int, url string, body io.Reader) error {
	detail, _ := io.ReadAll(io.LimitReader(body, 512))
	err := fmt.Errorf("http %d for %s: %s", status, url, bytes.TrimSpace(detail))

	switch {
	case status == http.StatusTooManyRequests:
		return fault.New(fault.ResourceExhausted, "embedding", err)
	case status >= 500:
		return fault.New(fault.Transient, "embedding", err)
	default:
		return fault.New(fault.Invalid, "embedding", err)
	}
}
