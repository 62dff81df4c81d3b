package embedding

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/cisearch/ingest/internal/fault"
)

// Client is the public entrypoint for computing embeddings.
//
// It hides all provider details (inference endpoints, HTTP, retry)
// from the application layer.
type Client struct {
	provider Provider
	cfg      *Config
}

// NewClient constructs a Client from Config.
// It validates the config and internally constructs the inference provider.
// Application code should depend on *Client, not on Provider or InferenceProvider.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding: invalid config: %w", err)
	}

	p, err := newInferenceProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to create provider: %w", err)
	}

	return &Client{provider: p, cfg: cfg}, nil
}

// NewClientWithProvider constructs a Client over an externally supplied
// provider. Used by tests and by callers that front the provider with
// their own transport.
func NewClientWithProvider(cfg *Config, p Provider) *Client {
	return &Client{provider: p, cfg: cfg}
}

// Embed computes the embedding for the content.
//
// Oversized inputs fail locally and terminally. Rate-limit and
// transient endpoint failures are retried with exponential backoff and
// jitter up to the configured attempt budget; terminal faults abort the
// retry loop immediately. The response is validated against the model
// geometry before it is returned.
func (c *Client) Embed(ctx context.Context, content Content) (Vector, error) {
	if size := len(content.Text) + len(content.Image); size > c.cfg.MaxPayloadBytes {
		return nil, fault.New(fault.Invalid, "embedding",
			fmt.Errorf("%w: %d bytes, ceiling %d", ErrOversizedInput, size, c.cfg.MaxPayloadBytes))
	}

	model := c.cfg.ModelFor(content)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff
	policy.MaxInterval = c.cfg.MaxBackoff
	policy.Multiplier = 2
	// RandomizationFactor keeps its default so retries jitter apart.

	var vec Vector
	operation := func() error {
		v, err := c.provider.Embed(ctx, model, content)
		if err != nil {
			if fault.IsTerminal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.cfg.MaxRetries), ctx))
	if err != nil {
		return nil, err
	}

	if err := checkGeometry(vec, c.cfg.DimensionFor(content), c.cfg.Normalized); err != nil {
		return nil, err
	}
	return vec, nil
}

// Close allows the client to release any internal resources used by the provider.
// Currently this is a no-op unless the provider implements Close().
func (c *Client) Close() error {
	if closer, ok := c.provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
