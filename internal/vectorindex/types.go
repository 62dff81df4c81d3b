package vectorindex

import (
	"time"

	"github.com/cisearch/ingest/internal/embedding"
)

// Mapping is the immutable schema of one index generation.
type Mapping struct {
	// Dimension of every vector in the generation.
	Dimension int

	// Normalized declares that vectors are unit length. The similarity
	// function follows from it: inner product for normalized vectors,
	// cosine otherwise. Fixed per generation, never per query.
	Normalized bool

	// HNSW build parameters. Zero values fall back to the configured
	// defaults.
	EfConstruction uint64
	M              uint64
}

// Document is one indexed record. Writes are atomic per document.
type Document struct {
	ID        string
	Vector    embedding.Vector
	Metadata  map[string]any
	IndexedAt time.Time
}

// Result is one ranked search hit.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Page is one cursor-delimited slice of ranked results. Next is empty
// when the result set is exhausted.
type Page struct {
	Results []Result
	Next    string
}

// GenerationInfo describes one generation collection.
type GenerationInfo struct {
	Name       string
	Points     uint64
	Dimension  int
	Distance   string
	Active     bool
}
