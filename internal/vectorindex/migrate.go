package vectorindex

import (
	"context"
	"fmt"
	"log"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"

	"github.com/cisearch/ingest/internal/fault"
)

const reindexUpsertConcurrency = 4

// ReindexInto copies every point from the active generation into the
// destination generation, logging a running checkpoint. Production
// stays untouched: the copy only reads the source and only writes the
// destination. Returns the number of points copied.
//
// The copy is restartable. Upserts are idempotent by point id, so a
// crashed reindex is rerun from scratch without harm.
func (m *Manager) ReindexInto(ctx context.Context, generation string) (uint64, error) {
	source, err := m.ActiveGeneration(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.requireGeneration(ctx, generation); err != nil {
		return 0, err
	}
	if source == generation {
		return 0, fault.New(fault.Protocol, "indexing",
			fmt.Errorf("reindex source and destination are both '%s'", generation))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexUpsertConcurrency)

	var copied uint64
	var offset *qdrant.PointId
	limit := uint32(m.cfg.ReindexBatchSize)
	if limit == 0 {
		limit = 200
	}

	for {
		points, err := m.api.Scroll(gctx, &qdrant.ScrollPoints{
			CollectionName: source,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return copied, fault.New(fault.Transient, "indexing",
				fmt.Errorf("scroll '%s': %w", source, err))
		}

		// The offset id is returned again at the start of each page.
		// The end-of-scroll check runs on the raw page length: after
		// dedup every full page looks one short.
		pageLen := uint32(len(points))
		if offset != nil && len(points) > 0 && points[0].Id.String() == offset.String() {
			points = points[1:]
		}
		if len(points) == 0 {
			break
		}

		batch := make([]*qdrant.PointStruct, 0, len(points))
		for _, p := range points {
			vec := p.Vectors.GetVector()
			if vec == nil {
				return copied, fault.New(fault.Protocol, "indexing",
					fmt.Errorf("point %s has no vector", p.Id.String()))
			}
			batch = append(batch, &qdrant.PointStruct{
				Id:      p.Id,
				Vectors: qdrant.NewVectors(vec.GetData()...),
				Payload: p.Payload,
			})
		}

		g.Go(func() error {
			wait := true
			if _, err := m.api.Upsert(gctx, &qdrant.UpsertPoints{
				CollectionName: generation,
				Points:         batch,
				Wait:           &wait,
			}); err != nil {
				return fault.New(fault.Transient, "indexing",
					fmt.Errorf("reindex upsert into '%s': %w", generation, err))
			}
			return nil
		})

		copied += uint64(len(points))
		log.Printf("[Index] Reindex checkpoint: %d points copied from '%s' to '%s'", copied, source, generation)

		offset = points[len(points)-1].Id
		if pageLen < limit {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return copied, err
	}

	log.Printf("[Index] Reindex complete: %d points from '%s' to '%s'", copied, source, generation)
	return copied, nil
}

// Promote validates the destination generation and atomically repoints
// the alias at it. The count gate and the mapping spot-check run first;
// any failure leaves the alias where it was, so a failed promote is
// retryable without re-copying data. Promoting a generation that does
// not exist is a protocol fault.
func (m *Manager) Promote(ctx context.Context, generation string) error {
	if err := m.requireGeneration(ctx, generation); err != nil {
		return err
	}

	info, err := m.api.GetCollectionInfo(ctx, generation)
	if err != nil {
		return fault.New(fault.Transient, "indexing",
			fmt.Errorf("get collection '%s': %w", generation, err))
	}
	if size, _ := extractVectorDetails(info); size <= 0 {
		return fault.New(fault.Protocol, "indexing",
			fmt.Errorf("generation '%s' has no vector mapping", generation))
	}

	source, err := m.ActiveGeneration(ctx)
	switch err {
	case nil:
		if source == generation {
			return nil // already active, promote is idempotent
		}
		srcCount, err := m.Count(ctx, source)
		if err != nil {
			return err
		}
		dstCount, err := m.Count(ctx, generation)
		if err != nil {
			return err
		}
		if dstCount < srcCount {
			return fmt.Errorf("%w: source '%s' has %d, destination '%s' has %d",
				ErrCountMismatch, source, srcCount, generation, dstCount)
		}
	case ErrNoActiveGeneration:
		// Bootstrap promote, nothing to validate against.
	default:
		return err
	}

	// Delete and create run as one aliasing transaction, so no reader
	// ever observes a missing or half-moved alias.
	actions := []*qdrant.AliasOperations{}
	if source != "" {
		actions = append(actions, qdrant.NewAliasDelete(m.cfg.Alias))
	}
	actions = append(actions, qdrant.NewAliasCreate(m.cfg.Alias, generation))

	if err := m.api.UpdateAliases(ctx, actions); err != nil {
		return fault.New(fault.Transient, "indexing",
			fmt.Errorf("promote '%s': %w", generation, err))
	}

	log.Printf("[Index] Promoted generation '%s' (alias=%s, previous=%s)", generation, m.cfg.Alias, source)
	return nil
}

// Retire deletes a replaced generation. It refuses to touch the active
// generation, and refuses to delete inside the retention window
// measured from replacedAt, the promotion time of its successor. A zero
// replacedAt means the caller has no record and takes responsibility.
func (m *Manager) Retire(ctx context.Context, generation string, replacedAt time.Time) error {
	if err := m.requireGeneration(ctx, generation); err != nil {
		return err
	}

	active, err := m.ActiveGeneration(ctx)
	if err != nil && err != ErrNoActiveGeneration {
		return err
	}
	if generation == active {
		return fmt.Errorf("%w: '%s'", ErrGenerationActive, generation)
	}

	if !replacedAt.IsZero() {
		if age := time.Since(replacedAt); age < m.cfg.RetentionWindow {
			return fmt.Errorf("%w: '%s' replaced %s ago, retention is %s",
				ErrRetentionWindow, generation, age.Truncate(time.Second), m.cfg.RetentionWindow)
		}
	}

	if err := m.api.DeleteCollection(ctx, generation); err != nil {
		return fault.New(fault.Transient, "indexing",
			fmt.Errorf("retire '%s': %w", generation, err))
	}

	log.Printf("[Index] Retired generation '%s'", generation)
	return nil
}

// requireGeneration fails with a protocol fault when the named
// generation collection does not exist.
func (m *Manager) requireGeneration(ctx context.Context, generation string) error {
	exists, err := m.api.CollectionExists(ctx, generation)
	if err != nil {
		return fault.New(fault.Transient, "indexing",
			fmt.Errorf("check collection '%s': %w", generation, err))
	}
	if !exists {
		return fault.New(fault.Protocol, "indexing",
			fmt.Errorf("%w: '%s'", ErrUnknownGeneration, generation))
	}
	return nil
}
