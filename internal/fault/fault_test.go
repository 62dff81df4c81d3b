package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Classified(t *testing.T) {
	err := New(Invalid, "converting", errors.New("unsupported file type"))
	assert.Equal(t, Invalid, KindOf(err))
	assert.Equal(t, "converting", StageOf(err))
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := New(ResourceExhausted, "embedding", errors.New("throttled"))
	wrapped := fmt.Errorf("processing work item: %w", inner)

	assert.Equal(t, ResourceExhausted, KindOf(wrapped))
	assert.Equal(t, "embedding", StageOf(wrapped))
}

func TestKindOf_Unclassified_DefaultsTransient(t *testing.T) {
	assert.Equal(t, Transient, KindOf(errors.New("boom")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
	}{
		{Transient, true},
		{ResourceExhausted, true},
		{Invalid, false},
		{Protocol, false},
	}
	for _, tt := range tests {
		err := New(tt.kind, "stage", errors.New("x"))
		assert.Equal(t, tt.retryable, IsRetryable(err), tt.kind.String())
		assert.Equal(t, !tt.retryable, IsTerminal(err), tt.kind.String())
	}
}

func TestWithLocator_DoesNotMutateOriginal(t *testing.T) {
	orig := New(Invalid, "downloading", errors.New("not found"))
	annotated := orig.WithLocator("documents/road/a.pdf")

	assert.Empty(t, orig.Locator)
	assert.Equal(t, "documents/road/a.pdf", annotated.Locator)
	assert.Contains(t, annotated.Error(), "documents/road/a.pdf")
}
