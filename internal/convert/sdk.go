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
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// SDKClient talks to the licensed converter service over HTTP. The
// service wraps the commercial SDK; this client only sees a file in and
// text out.
//
// PDFs are structurally validated and page-counted locally with pdfcpu
// before the remote call, so corrupt input fails without consuming a
// license slot's worth of service time.
type SDKClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSDKClient constructs the licensed-path client.
func NewSDKClient(cfg Config) (*SDKClient, error) {
	if cfg.SDKEndpoint == "" {
		return nil, fmt.Errorf("convert: missing CONVERT_SDK_ENDPOINT")
	}
	return &SDKClient{
		baseURL:    strings.TrimRight(cfg.SDKEndpoint, "/"),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

// ExtractText runs the licensed extraction for one file.
func (c *SDKClient) ExtractText(ctx context.Context, path string) (*Extraction, error) {
	localPages := 0
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if err := api.ValidateFile(path, nil); err != nil {
			return nil, fmt.Errorf("pdf validation failed: %w", err)
		}
		n, err := api.PageCountFile(path)
		if err != nil {
			return nil, fmt.Errorf("pdf page count failed: %w", err)
		}
		localPages = n
	}

	var parsed struct {
		Text      string `json:"text"`
		PageCount int    `json:"pageCount"`
	}
	if err := c.postFile(ctx, c.baseURL+"/v1/extract", path, &parsed); err != nil {
		return nil, err
	}

	pages := parsed.PageCount
	if pages == 0 {
		pages = localPages
	}
	return &Extraction{Text: parsed.Text, PageCount: pages}, nil
}

// postFile uploads the file as multipart form data and decodes the JSON
// response into out.
func (c *SDKClient) postFile(ctx context.Context, url, path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d for %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
