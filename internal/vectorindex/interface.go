package vectorindex

import (
	"context"

	qdrant "github.com/qdrant/go-client/qdrant"
)

// collectionsAPI is the slice of the Qdrant client the manager depends
// on. *qdrant.Client satisfies it; tests drive the generation and
// migration protocol through fakes.
type collectionsAPI interface {
	ListAliases(ctx context.Context) ([]*qdrant.AliasDescription, error)
	UpdateAliases(ctx context.Context, actions []*qdrant.AliasOperations) error

	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	DeleteCollection(ctx context.Context, collectionName string) error
	ListCollections(ctx context.Context) ([]string, error)

	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)

	Close() error
}

var _ collectionsAPI = (*qdrant.Client)(nil)
