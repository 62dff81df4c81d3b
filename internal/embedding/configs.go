package embedding

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EMBEDDING_ENDPOINT must point to the root of the inference service
// (no /v1/embeddings appended). The provider appends paths
// automatically, so callers only need to supply the host base URL.

type Config struct {
	// Inference endpoint and auth
	Endpoint     string // Base URL of the inference API
	ServiceToken string // internal service token
	HTTPTimeoutS int    // HTTP timeout seconds (default 30)

	// Model routing. Text-only content goes to TextModel, content with
	// an image payload to MultimodalModel. Dimensions are part of the
	// model contract and are validated on every response.
	TextModel           string
	MultimodalModel     string
	TextDimension       int
	MultimodalDimension int

	// Normalized declares that the models emit unit-length vectors.
	// When set, responses with an L2 norm outside [0.99, 1.01] are
	// rejected as contract violations.
	Normalized bool

	// MaxPayloadBytes is the local input ceiling. Inputs above it are
	// rejected before any remote call.
	MaxPayloadBytes int

	// Retry budget for rate limiting and transient endpoint failures.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     uint64
}

// NewConfig reads from environment variables.
func NewConfig() *Config {
	timeout := 30
	if v := os.Getenv("EMBEDDING_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}

	maxPayload := 5 * 1024 * 1024
	if v := os.Getenv("EMBEDDING_MAX_PAYLOAD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxPayload = n
		}
	}

	return &Config{
		Endpoint:            os.Getenv("EMBEDDING_ENDPOINT"),
		ServiceToken:        os.Getenv("EMBEDDING_SERVICE_TOKEN"),
		HTTPTimeoutS:        timeout,
		TextModel:           envOr("EMBEDDING_TEXT_MODEL", "embed-text-v2"),
		MultimodalModel:     envOr("EMBEDDING_MULTIMODAL_MODEL", "embed-multimodal-v1"),
		TextDimension:       envIntOr("EMBEDDING_TEXT_DIMENSION", 1536),
		MultimodalDimension: envIntOr("EMBEDDING_MULTIMODAL_DIMENSION", 1024),
		Normalized:          os.Getenv("EMBEDDING_NORMALIZED") != "false",
		MaxPayloadBytes:     maxPayload,
		InitialBackoff:      2 * time.Second,
		MaxBackoff:          60 * time.Second,
		MaxRetries:          3,
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("embedding: missing EMBEDDING_ENDPOINT")
	}
	if c.ServiceToken == "" {
		return fmt.Errorf("embedding: missing EMBEDDING_SERVICE_TOKEN")
	}
	if c.TextDimension <= 0 || c.MultimodalDimension <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("embedding: max payload must be positive")
	}
	return nil
}

// DimensionFor returns the expected vector dimension for the content.
func (c *Config) DimensionFor(content Content) int {
	if content.Multimodal() {
		return c.MultimodalDimension
	}
	return c.TextDimension
}

// ModelFor returns the model that handles the content.
func (c *Config) ModelFor(content Content) string {
	if content.Multimodal() {
		return c.MultimodalModel
	}
	return c.TextModel
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
