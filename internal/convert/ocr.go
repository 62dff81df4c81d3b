package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// OCRClient talks to the OCR engine over HTTP. The engine's internals
// (model, language packs) are opaque to the pipeline.
type OCRClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOCRClient constructs the OCR fallback client.
func NewOCRClient(cfg Config) (*OCRClient, error) {
	if cfg.OCREndpoint == "" {
		return nil, fmt.Errorf("convert: missing CONVERT_OCR_ENDPOINT")
	}
	return &OCRClient{
		baseURL:    strings.TrimRight(cfg.OCREndpoint, "/"),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

// Recognize runs OCR over one file.
func (c *OCRClient) Recognize(ctx context.Context, path string) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recognize", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d for %s", resp.StatusCode, c.baseURL)
	}

	var parsed struct {
		Text      string `json:"text"`
		PageCount int    `json:"pageCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &Extraction{Text: parsed.Text, PageCount: parsed.PageCount}, nil
}
