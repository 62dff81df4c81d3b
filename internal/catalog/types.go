package catalog

import (
	"context"
	"time"
)

// GenerationStatus is the lifecycle state of one index generation.
type GenerationStatus string

const (
	GenerationCreated  GenerationStatus = "created"
	GenerationPromoted GenerationStatus = "promoted"
	GenerationReplaced GenerationStatus = "replaced"
	GenerationRetired  GenerationStatus = "retired"
)

// GenerationRecord is the catalog's view of one generation collection.
type GenerationRecord struct {
	Name       string
	Dimension  int
	Distance   string
	Status     GenerationStatus
	CreatedAt  time.Time
	PromotedAt *time.Time
	ReplacedAt *time.Time
	RetiredAt  *time.Time
}

// FailureRecord is written when a work item fails terminally. It is
// the operator-visible artifact replacing the deleted queue message.
type FailureRecord struct {
	ID            string
	WorkItemID    string
	SourceLocator string
	Stage         string
	Kind          string
	Message       string
	AttemptCount  int
	OccurredAt    time.Time
}

// Store is the catalog contract the rest of the pipeline depends on.
type Store interface {
	RecordGeneration(ctx context.Context, name string, dimension int, distance string) error
	MarkPromoted(ctx context.Context, name string) error
	MarkRetired(ctx context.Context, name string) error
	GetGeneration(ctx context.Context, name string) (*GenerationRecord, error)
	ListGenerations(ctx context.Context) ([]GenerationRecord, error)

	RecordFailure(ctx context.Context, rec FailureRecord) error
	ListFailures(ctx context.Context, limit int) ([]FailureRecord, error)

	Close()
}
