package embedding

import "context"

// Vector is a fixed-dimension embedding returned by the model.
type Vector []float32

// Content is one embedding input. Text is always set; Image carries
// the raw page image bytes when the multimodal model should be used.
type Content struct {
	Text  string
	Image []byte
}

// Multimodal reports whether the content carries an image payload.
func (c Content) Multimodal() bool {
	return len(c.Image) > 0
}

// Provider contract
type Provider interface {
	// Embed generates an embedding for the given content using the
	// specified model.
	Embed(ctx context.Context, model string, content Content) (Vector, error)
}
