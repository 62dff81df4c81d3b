package embedding

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cisearch/ingest/internal/fault"
)

type InferenceProvider struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func newInferenceProvider(cfg *Config) (*InferenceProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("inference: missing EMBEDDING_ENDPOINT")
	}

	// Remove trailing slash if user added it.
	base := strings.TrimRight(cfg.Endpoint, "/")

	return &InferenceProvider{
		baseURL:      base,
		serviceToken: cfg.ServiceToken,
		httpClient:   &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutS) * time.Second},
	}, nil
}

// Embed generates an embedding for the content using the specified
// model via the /v1/embeddings endpoint. Transport and status failures
// come back as classified faults so the caller's retry policy can act
// on them without inspecting HTTP details.
func (p *InferenceProvider) Embed(ctx context.Context, model string, content Content) (Vector, error) {
	if model == "" {
		return nil, fault.New(fault.Invalid, "embedding", fmt.Errorf("inference: model is required"))
	}
	if content.Text == "" && !content.Multimodal() {
		return nil, fault.New(fault.Invalid, "embedding", fmt.Errorf("inference: empty content"))
	}

	reqBody := map[string]any{
		"model":     model,
		"inputText": content.Text,
	}
	if content.Multimodal() {
		reqBody["inputImage"] = base64.StdEncoding.EncodeToString(content.Image)
	}

	url := fmt.Sprintf("%s/v1/embeddings", p.baseURL)

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}

	if err := p.postJSON(ctx, url, reqBody, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Embedding) == 0 {
		return nil, fault.New(fault.Invalid, "embedding", fmt.Errorf("inference: empty embedding in response"))
	}

	return Vector(parsed.Embedding), nil
}
