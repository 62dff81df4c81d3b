package vectorindex

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisearch/ingest/internal/fault"
)

// fakeQdrant implements collectionsAPI in memory, enough to drive the
// generation and migration protocol.
type fakeQdrant struct {
	aliases     map[string]string
	collections map[string]*fakeCollection
	aliasCalls  [][]*qdrant.AliasOperations
	deleted     []string

	// upserts arrive from concurrent reindex workers.
	mu      sync.Mutex
	upserts []*qdrant.UpsertPoints
}

type fakeCollection struct {
	size   uint64
	count  uint64
	points []*qdrant.RetrievedPoint
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		aliases:     map[string]string{},
		collections: map[string]*fakeCollection{},
	}
}

func (f *fakeQdrant) ListAliases(ctx context.Context) ([]*qdrant.AliasDescription, error) {
	out := make([]*qdrant.AliasDescription, 0, len(f.aliases))
	for alias, coll := range f.aliases {
		out = append(out, &qdrant.AliasDescription{AliasName: alias, CollectionName: coll})
	}
	return out, nil
}

func (f *fakeQdrant) UpdateAliases(ctx context.Context, actions []*qdrant.AliasOperations) error {
	f.aliasCalls = append(f.aliasCalls, actions)
	for _, op := range actions {
		switch a := op.Action.(type) {
		case *qdrant.AliasOperations_DeleteAlias:
			delete(f.aliases, a.DeleteAlias.AliasName)
		case *qdrant.AliasOperations_CreateAlias:
			f.aliases[a.CreateAlias.AliasName] = a.CreateAlias.CollectionName
		}
	}
	return nil
}

func (f *fakeQdrant) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	f.collections[req.CollectionName] = &fakeCollection{size: 1}
	return nil
}

func (f *fakeQdrant) GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error) {
	col, ok := f.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", name)
	}
	return &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: &qdrant.VectorsConfig{
					Config: &qdrant.VectorsConfig_Params{
						Params: &qdrant.VectorParams{Size: col.size, Distance: qdrant.Distance_Cosine},
					},
				},
			},
		},
	}, nil
}

func (f *fakeQdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeQdrant) DeleteCollection(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	delete(f.collections, name)
	return nil
}

func (f *fakeQdrant) ListCollections(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(f.collections))
	for name := range f.collections {
		out = append(out, name)
	}
	return out, nil
}

func (f *fakeQdrant) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	f.upserts = append(f.upserts, req)
	f.mu.Unlock()
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	return nil, nil
}

// Scroll serves pages the way the server does: the offset point opens
// its page again.
func (f *fakeQdrant) Scroll(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error) {
	col, ok := f.collections[req.CollectionName]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", req.CollectionName)
	}
	start := 0
	if req.Offset != nil {
		for i, p := range col.points {
			if p.Id.String() == req.Offset.String() {
				start = i
				break
			}
		}
	}
	end := start + int(*req.Limit)
	if end > len(col.points) {
		end = len(col.points)
	}
	return col.points[start:end], nil
}

func (f *fakeQdrant) Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error) {
	col, ok := f.collections[req.CollectionName]
	if !ok {
		return 0, fmt.Errorf("collection %q not found", req.CollectionName)
	}
	if len(col.points) > 0 {
		return uint64(len(col.points)), nil
	}
	return col.count, nil
}

func (f *fakeQdrant) Close() error { return nil }

func retrievedPoint(id string, vec []float32) *qdrant.RetrievedPoint {
	return &qdrant.RetrievedPoint{
		Id: qdrant.NewID(id),
		Vectors: &qdrant.VectorsOutput{
			VectorsOptions: &qdrant.VectorsOutput_Vector{
				Vector: &qdrant.VectorOutput{Data: vec},
			},
		},
	}
}

func migrateFixture() (*fakeQdrant, *Manager) {
	api := newFakeQdrant()
	cfg := &Config{
		Alias:            "documents",
		GenerationPrefix: "documents",
		RetentionWindow:  24 * time.Hour,
		ReindexBatchSize: 2,
	}
	return api, &Manager{api: api, cfg: cfg}
}

func TestPromoteRefusesShortDestination(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4, count: 10}
	api.collections["documents_g2"] = &fakeCollection{size: 4, count: 5}
	api.aliases["documents"] = "documents_g1"

	err := m.Promote(context.Background(), "documents_g2")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.Empty(t, api.aliasCalls)
	assert.Equal(t, "documents_g1", api.aliases["documents"])
}

func TestPromoteRepointsAliasInOneTransaction(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4, count: 10}
	api.collections["documents_g2"] = &fakeCollection{size: 4, count: 10}
	api.aliases["documents"] = "documents_g1"

	require.NoError(t, m.Promote(context.Background(), "documents_g2"))

	// Delete and create travel in a single aliasing call, so no reader
	// ever sees a missing alias.
	require.Len(t, api.aliasCalls, 1)
	assert.Len(t, api.aliasCalls[0], 2)
	assert.Equal(t, "documents_g2", api.aliases["documents"])
}

func TestPromoteBootstrapsWithoutActiveGeneration(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4, count: 3}

	require.NoError(t, m.Promote(context.Background(), "documents_g1"))

	require.Len(t, api.aliasCalls, 1)
	assert.Len(t, api.aliasCalls[0], 1) // create only, nothing to delete
	assert.Equal(t, "documents_g1", api.aliases["documents"])
}

func TestPromoteMissingGenerationIsProtocolFault(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4, count: 10}
	api.aliases["documents"] = "documents_g1"

	err := m.Promote(context.Background(), "documents_g9")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownGeneration)
	assert.Equal(t, fault.Protocol, fault.KindOf(err))
	assert.Empty(t, api.aliasCalls)
}

func TestPromoteIsIdempotentForActiveGeneration(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4, count: 10}
	api.aliases["documents"] = "documents_g1"

	require.NoError(t, m.Promote(context.Background(), "documents_g1"))
	assert.Empty(t, api.aliasCalls)
}

func TestRetireRefusesActiveGeneration(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4}
	api.aliases["documents"] = "documents_g1"

	err := m.Retire(context.Background(), "documents_g1", time.Time{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationActive)
	assert.Empty(t, api.deleted)
}

func TestRetireRefusesInsideRetentionWindow(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4}
	api.collections["documents_g2"] = &fakeCollection{size: 4}
	api.aliases["documents"] = "documents_g2"

	err := m.Retire(context.Background(), "documents_g1", time.Now().Add(-time.Hour))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetentionWindow)
	assert.Empty(t, api.deleted)
}

func TestRetireDeletesAfterRetentionWindow(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 4}
	api.collections["documents_g2"] = &fakeCollection{size: 4}
	api.aliases["documents"] = "documents_g2"

	replaced := time.Now().Add(-48 * time.Hour)
	require.NoError(t, m.Retire(context.Background(), "documents_g1", replaced))
	assert.Equal(t, []string{"documents_g1"}, api.deleted)
}

func TestReindexIntoCopiesEveryPoint(t *testing.T) {
	api, m := migrateFixture()

	src := &fakeCollection{size: 2}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("00000000-0000-0000-0000-00000000000%d", i)
		src.points = append(src.points, retrievedPoint(id, []float32{float32(i), 1}))
	}
	api.collections["documents_g1"] = src
	api.collections["documents_g2"] = &fakeCollection{size: 2}
	api.aliases["documents"] = "documents_g1"

	copied, err := m.ReindexInto(context.Background(), "documents_g2")

	require.NoError(t, err)
	assert.Equal(t, uint64(5), copied)

	total := 0
	for _, u := range api.upserts {
		assert.Equal(t, "documents_g2", u.CollectionName)
		total += len(u.Points)
	}
	assert.Equal(t, 5, total)
}

func TestReindexIntoItselfIsProtocolFault(t *testing.T) {
	api, m := migrateFixture()
	api.collections["documents_g1"] = &fakeCollection{size: 2}
	api.aliases["documents"] = "documents_g1"

	_, err := m.ReindexInto(context.Background(), "documents_g1")

	require.Error(t, err)
	assert.Equal(t, fault.Protocol, fault.KindOf(err))
	assert.Empty(t, api.upserts)
}
