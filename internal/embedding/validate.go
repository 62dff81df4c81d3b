package embedding

import (
	"fmt"
	"math"

	"github.com/cisearch/ingest/internal/fault"
)

const (
	normLow  = 0.99
	normHigh = 1.01
)

// checkGeometry verifies a response vector against the model contract:
// exact dimension, finite components, non-degenerate content (neither
// zero nor all components equal), and unit L2 norm when the model
// declares normalized output. A vector that fails any check is a
// contract violation and must never be cached or indexed.
func checkGeometry(v Vector, dimension int, normalized bool) error {
	if len(v) != dimension {
		return fault.New(fault.Invalid, "embedding",
			fmt.Errorf("%w: got %d dimensions, want %d", ErrBadGeometry, len(v), dimension))
	}

	var sum float64
	allEqual := true
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fault.New(fault.Invalid, "embedding",
				fmt.Errorf("%w: non-finite component at index %d", ErrBadGeometry, i))
		}
		if x != v[0] {
			allEqual = false
		}
		sum += f * f
	}

	if sum == 0 {
		return fault.New(fault.Invalid, "embedding",
			fmt.Errorf("%w: zero vector", ErrBadGeometry))
	}
	if allEqual && len(v) > 1 {
		return fault.New(fault.Invalid, "embedding",
			fmt.Errorf("%w: all %d components equal %v", ErrBadGeometry, len(v), v[0]))
	}

	if normalized {
		norm := math.Sqrt(sum)
		if norm < normLow || norm > normHigh {
			return fault.New(fault.Invalid, "embedding",
				fmt.Errorf("%w: L2 norm %.4f outside [%v, %v]", ErrBadGeometry, norm, normLow, normHigh))
		}
	}
	return nil
}
