package vectorindex

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/cisearch/ingest/internal/fault"
)

// Manager wraps the official Qdrant Go client with the generation and
// alias scheme. All point operations address the alias, so an atomic
// alias repoint redirects readers and writers without touching them.
type Manager struct {
	api collectionsAPI
	cfg *Config
}

// docNamespace derives deterministic point UUIDs from document IDs, so
// re-indexing the same document always lands on the same point.
var docNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewManager constructs a Manager and validates connectivity via a
// health check, failing fast if the service is unreachable.
func NewManager(cfg *Config) (*Manager, error) {
	log.Printf("[Index] Connecting to endpoint: %s:%d", cfg.Endpoint, cfg.Port)

	port := cfg.Port
	if port == 0 {
		port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   port,
		APIKey:                 cfg.APIKey,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("[Index] failed to initialize client: %w", err)
	}

	m := &Manager{api: client, cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("[Index] health check failed: %w", err)
	}

	return m, nil
}

// ActiveGeneration resolves the alias to its current generation
// collection name.
func (m *Manager) ActiveGeneration(ctx context.Context) (string, error) {
	aliases, err := m.api.ListAliases(ctx)
	if err != nil {
		return "", fault.New(fault.Transient, "indexing", fmt.Errorf("list aliases: %w", err))
	}
	for _, a := range aliases {
		if a.AliasName == m.cfg.Alias {
			return a.CollectionName, nil
		}
	}
	return "", ErrNoActiveGeneration
}

// CreateGeneration creates a new generation collection from the mapping
// and returns its name. The similarity function is fixed here: inner
// product for normalized vectors, cosine otherwise.
func (m *Manager) CreateGeneration(ctx context.Context, mapping Mapping) (string, error) {
	if mapping.Dimension <= 0 {
		return "", fault.New(fault.Invalid, "indexing",
			fmt.Errorf("mapping dimension must be positive, got %d", mapping.Dimension))
	}

	name := fmt.Sprintf("%s_g%s", m.cfg.GenerationPrefix, time.Now().UTC().Format("20060102150405"))

	distance := qdrant.Distance_Cosine
	if mapping.Normalized {
		distance = qdrant.Distance_Dot
	}

	graphDegree := mapping.M
	if graphDegree == 0 {
		graphDegree = m.cfg.M
	}
	efConstruct := mapping.EfConstruction
	if efConstruct == 0 {
		efConstruct = m.cfg.EfConstruction
	}

	req := &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(mapping.Dimension),
			Distance: distance,
		}),
		HnswConfig: &qdrant.HnswConfigDiff{
			M:           &graphDegree,
			EfConstruct: &efConstruct,
		},
	}

	if err := m.api.CreateCollection(ctx, req); err != nil {
		return "", fault.New(fault.Transient, "indexing",
			fmt.Errorf("create generation '%s': %w", name, err))
	}

	log.Printf("[Index] Created generation '%s' (dim=%d, distance=%s)", name, mapping.Dimension, distance)
	return name, nil
}

// Upsert writes one document into the active generation through the
// alias. The write is atomic per document and blocks until persisted,
// so a retried work item overwrites its own point instead of
// duplicating it.
func (m *Manager) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" || len(doc.Vector) == 0 {
		return fault.New(fault.Invalid, "indexing",
			fmt.Errorf("document needs an id and a vector"))
	}

	payload := map[string]any{
		"doc_id":     doc.ID,
		"indexed_at": doc.IndexedAt.UTC().Format(time.RFC3339),
	}
	if len(doc.Metadata) > 0 {
		payload[UserPayloadPrefix] = doc.Metadata
	}

	wait := true
	req := &qdrant.UpsertPoints{
		CollectionName: m.cfg.Alias,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(pointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
		Wait: &wait,
	}

	if _, err := m.api.Upsert(ctx, req); err != nil {
		return fault.New(fault.Transient, "indexing", fmt.Errorf("upsert failed: %w", err))
	}
	return nil
}

// Query runs a filtered ANN search against the active generation and
// returns one cursor-delimited page. Filters restrict the candidate set
// inside the search. An empty cursorStr starts from the top.
func (m *Manager) Query(ctx context.Context, vector []float32, k int, filters *FilterSet, cursorStr string) (Page, error) {
	if len(vector) == 0 || k <= 0 {
		return Page{}, fault.New(fault.Invalid, "indexing",
			fmt.Errorf("query needs a vector and a positive k"))
	}

	var cur cursor
	resuming := cursorStr != ""
	if resuming {
		var err error
		if cur, err = decodeCursor(cursorStr); err != nil {
			return Page{}, err
		}
	}

	// The engine ranks globally, so a resumed page must search past
	// everything already served and skip to the cursor position.
	limit := uint64(k + cur.Rank + 1)
	ef := m.cfg.EfSearch

	req := &qdrant.QueryPoints{
		CollectionName: m.cfg.Alias,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(filters),
		Params:         &qdrant.SearchParams{HnswEf: &ef},
	}

	resp, err := m.api.Query(ctx, req)
	if err != nil {
		return Page{}, fault.New(fault.Transient, "indexing", fmt.Errorf("search failed: %w", err))
	}

	page := Page{Results: make([]Result, 0, k)}
	rank := cur.Rank
	for _, r := range resp {
		hit, err := parseHit(r)
		if err != nil {
			return Page{}, err
		}
		if resuming && !cur.after(hit.Score, hit.ID) {
			continue
		}
		page.Results = append(page.Results, hit)
		rank++
		if len(page.Results) == k {
			break
		}
	}

	if len(page.Results) == k {
		last := page.Results[k-1]
		page.Next = encodeCursor(cursor{Rank: rank, Score: last.Score, ID: last.ID})
	}
	return page, nil
}

// parseHit converts one scored point into a Result, preferring the
// original document id from the payload over the derived point id.
func parseHit(r *qdrant.ScoredPoint) (Result, error) {
	meta := convertPayload(r.Payload)

	var id string
	if docID, ok := meta["doc_id"].(string); ok {
		id = docID
	} else {
		switch v := r.Id.PointIdOptions.(type) {
		case *qdrant.PointId_Num:
			id = fmt.Sprintf("%d", v.Num)
		case *qdrant.PointId_Uuid:
			id = v.Uuid
		default:
			return Result{}, fault.New(fault.Protocol, "indexing",
				fmt.Errorf("unexpected PointId type: %T", v))
		}
	}

	return Result{ID: id, Score: r.Score, Metadata: meta}, nil
}

// Generations lists every generation collection with its point count
// and mapping, flagging the one the alias points at.
func (m *Manager) Generations(ctx context.Context) ([]GenerationInfo, error) {
	names, err := m.api.ListCollections(ctx)
	if err != nil {
		return nil, fault.New(fault.Transient, "indexing", fmt.Errorf("list collections: %w", err))
	}

	active, err := m.ActiveGeneration(ctx)
	if err != nil && err != ErrNoActiveGeneration {
		return nil, err
	}

	prefix := m.cfg.GenerationPrefix + "_g"
	infos := make([]GenerationInfo, 0, len(names))
	for _, name := range names {
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		info, err := m.api.GetCollectionInfo(ctx, name)
		if err != nil {
			return nil, fault.New(fault.Transient, "indexing",
				fmt.Errorf("get collection '%s': %w", name, err))
		}
		size, distance := extractVectorDetails(info)
		infos = append(infos, GenerationInfo{
			Name:      name,
			Points:    derefUint64(info.PointsCount),
			Dimension: size,
			Distance:  distance,
			Active:    name == active,
		})
	}
	return infos, nil
}

// Count returns the exact point count of a generation.
func (m *Manager) Count(ctx context.Context, generation string) (uint64, error) {
	exact := true
	n, err := m.api.Count(ctx, &qdrant.CountPoints{
		CollectionName: generation,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fault.New(fault.Transient, "indexing",
			fmt.Errorf("count '%s': %w", generation, err))
	}
	return n, nil
}

// Close gracefully shuts down the underlying client.
func (m *Manager) Close() error {
	return m.api.Close()
}

// pointID maps a document id onto a valid point id. Document ids that
// already are UUIDs pass through; everything else gets a deterministic
// UUID derived from the id.
func pointID(docID string) string {
	if _, err := uuid.Parse(docID); err == nil {
		return docID
	}
	return uuid.NewSHA1(docNamespace, []byte(docID)).String()
}

// extractVectorDetails safely extracts the vector size and distance
// metric from Qdrant's nested collection info.
func extractVectorDetails(info *qdrant.CollectionInfo) (int, string) {
	if info == nil ||
		info.Config == nil ||
		info.Config.Params == nil ||
		info.Config.Params.VectorsConfig == nil ||
		info.Config.Params.VectorsConfig.Config == nil {
		return 0, ""
	}

	if cfg, ok := info.Config.Params.VectorsConfig.Config.(*qdrant.VectorsConfig_Params); ok {
		return int(cfg.Params.Size), cfg.Params.Distance.String()
	}

	return 0, ""
}

// derefUint64 safely dereferences a *uint64 pointer.
func derefUint64(v *uint64) uint64 {
	if v != nil {
		return *v
	}
	return 0
}

// convertPayload converts Qdrant's protobuf payload to a generic map.
func convertPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		result[k] = extractValue(v)
	}
	return result
}

// extractValue recursively converts a Qdrant Value to a Go native type.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_StructValue:
		if val.StructValue == nil {
			return nil
		}
		return convertPayload(val.StructValue.Fields)
	case *qdrant.Value_ListValue:
		if val.ListValue == nil {
			return nil
		}
		items := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			items[i] = extractValue(item)
		}
		return items
	default:
		return nil
	}
}
