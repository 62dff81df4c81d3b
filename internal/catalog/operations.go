package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrGenerationNotFound means the generation was never recorded.
var ErrGenerationNotFound = errors.New("catalog: generation not found")

// RecordGeneration registers a freshly created generation.
func (c *Catalog) RecordGeneration(ctx context.Context, name string, dimension int, distance string) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO index_generations (name, dimension, distance, status)
		 VALUES ($1, $2, $3, 'created')
		 ON CONFLICT (name) DO NOTHING`,
		name, dimension, distance)
	if err != nil {
		return fmt.Errorf("catalog: record generation '%s': %w", name, err)
	}
	return nil
}

// MarkPromoted stamps the generation promoted and stamps the previously
// promoted generation replaced, in one transaction. The replaced
// timestamp starts the retention window.
func (c *Catalog) MarkPromoted(ctx context.Context, name string) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("catalog: begin promote: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`UPDATE index_generations
		 SET status = 'replaced', replaced_at = now()
		 WHERE status = 'promoted' AND name <> $1`, name); err != nil {
		return fmt.Errorf("catalog: mark replaced: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE index_generations
		 SET status = 'promoted', promoted_at = now()
		 WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("catalog: mark promoted '%s': %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: '%s'", ErrGenerationNotFound, name)
	}

	return tx.Commit(ctx)
}

// MarkRetired stamps the generation retired.
func (c *Catalog) MarkRetired(ctx context.Context, name string) error {
	tag, err := c.pool.Exec(ctx,
		`UPDATE index_generations
		 SET status = 'retired', retired_at = now()
		 WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("catalog: mark retired '%s': %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: '%s'", ErrGenerationNotFound, name)
	}
	return nil
}

// GetGeneration fetches one generation record.
func (c *Catalog) GetGeneration(ctx context.Context, name string) (*GenerationRecord, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT name, dimension, distance, status, created_at, promoted_at, replaced_at, retired_at
		 FROM index_generations WHERE name = $1`, name)

	var rec GenerationRecord
	err := row.Scan(&rec.Name, &rec.Dimension, &rec.Distance, &rec.Status,
		&rec.CreatedAt, &rec.PromotedAt, &rec.ReplacedAt, &rec.RetiredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: '%s'", ErrGenerationNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get generation '%s': %w", name, err)
	}
	return &rec, nil
}

// ListGenerations returns all generation records, newest first.
func (c *Catalog) ListGenerations(ctx context.Context) ([]GenerationRecord, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT name, dimension, distance, status, created_at, promoted_at, replaced_at, retired_at
		 FROM index_generations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list generations: %w", err)
	}
	defer rows.Close()

	var recs []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		if err := rows.Scan(&rec.Name, &rec.Dimension, &rec.Distance, &rec.Status,
			&rec.CreatedAt, &rec.PromotedAt, &rec.ReplacedAt, &rec.RetiredAt); err != nil {
			return nil, fmt.Errorf("catalog: scan generation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// RecordFailure writes one terminal-failure record. A zero ID gets a
// fresh UUID.
func (c *Catalog) RecordFailure(ctx context.Context, rec FailureRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := c.pool.Exec(ctx,
		`INSERT INTO ingest_failures
		 (id, work_item_id, source_locator, stage, kind, message, attempt_count, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO NOTHING`,
		id, rec.WorkItemID, rec.SourceLocator, rec.Stage, rec.Kind, rec.Message, rec.AttemptCount)
	if err != nil {
		return fmt.Errorf("catalog: record failure for '%s': %w", rec.WorkItemID, err)
	}
	return nil
}

// ListFailures returns the most recent failure records.
func (c *Catalog) ListFailures(ctx context.Context, limit int) ([]FailureRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.pool.Query(ctx,
		`SELECT id, work_item_id, source_locator, stage, kind, message, attempt_count, occurred_at
		 FROM ingest_failures ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list failures: %w", err)
	}
	defer rows.Close()

	var recs []FailureRecord
	for rows.Next() {
		var rec FailureRecord
		if err := rows.Scan(&rec.ID, &rec.WorkItemID, &rec.SourceLocator, &rec.Stage,
			&rec.Kind, &rec.Message, &rec.AttemptCount, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("catalog: scan failure: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
