package worker

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cisearch/ingest/internal/catalog"
	"github.com/cisearch/ingest/internal/convert"
	"github.com/cisearch/ingest/internal/embedding"
	"github.com/cisearch/ingest/internal/fault"
	"github.com/cisearch/ingest/internal/queue"
	"github.com/cisearch/ingest/internal/vectorindex"
)

// Disposition is the final settlement of one delivery.
type Disposition int

const (
	DispositionAcked Disposition = iota
	DispositionRequeued
	DispositionDeadLettered
)

func (d Disposition) String() string {
	switch d {
	case DispositionAcked:
		return "acked"
	case DispositionRequeued:
		return "requeued"
	case DispositionDeadLettered:
		return "dead_lettered"
	default:
		return "unknown"
	}
}

// Converter is the conversion stage contract. *convert.Converter
// satisfies it.
type Converter interface {
	Convert(ctx context.Context, in convert.Input) (*convert.Result, error)
}

// EmbeddingSource is the embedding stage contract. *embcache.Cache
// satisfies it.
type EmbeddingSource interface {
	Get(ctx context.Context, content embedding.Content) (embedding.Vector, error)
}

// Indexer is the indexing stage contract. *vectorindex.Manager
// satisfies it.
type Indexer interface {
	Upsert(ctx context.Context, doc vectorindex.Document) error
}

// FailureSink records terminal failures. catalog.Store satisfies it.
type FailureSink interface {
	RecordFailure(ctx context.Context, rec catalog.FailureRecord) error
}

// Downloader is the download stage contract. objectstore.Client
// satisfies it.
type Downloader interface {
	Download(ctx context.Context, locator string) (string, error)
}

// Logger is the subset of the logger used by this package.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// StageObserver records per-stage metrics. *metrics.Metrics satisfies
// it.
type StageObserver interface {
	IncrementItems(result string)
	RecordStageDuration(start time.Time, stage string)
}

// Processor runs the state machine for one delivery at a time. It is
// stateless across deliveries and safe for concurrent use.
type Processor struct {
	cfg         Config
	maxAttempts int
	store       Downloader
	convert     Converter
	embed       EmbeddingSource
	index       Indexer
	failures    FailureSink
	metrics     StageObserver
	log         Logger
}

// NewProcessor wires the pipeline stages. maxAttempts is the queue's
// dead-letter threshold: a retryable failure on the final attempt is
// settled terminally instead of requeued.
func NewProcessor(cfg Config, maxAttempts int, store Downloader, conv Converter, embed EmbeddingSource, index Indexer, failures FailureSink, metrics StageObserver, log Logger) *Processor {
	return &Processor{
		cfg:         cfg,
		maxAttempts: maxAttempts,
		store:       store,
		convert:     conv,
		embed:       embed,
		index:       index,
		failures:    failures,
		metrics:     metrics,
		log:         log,
	}
}

// Process drives one delivery to exactly one settlement.
func (p *Processor) Process(ctx context.Context, d queue.Delivery) Disposition {
	item, err := d.WorkItem()
	if err != nil {
		// The payload never decoded; there is no retry that fixes it.
		return p.settleFailure(ctx, d, item, err)
	}

	p.log.Info("work item received", nil, map[string]interface{}{
		"work_item_id": item.ID,
		"locator":      item.SourceLocator,
		"attempt":      item.AttemptCount,
	})

	// Downloading
	start := time.Now()
	path, err := p.store.Download(ctx, item.SourceLocator)
	if err != nil {
		return p.settleFailure(ctx, d, item, err)
	}
	defer os.Remove(path)
	p.metrics.RecordStageDuration(start, "downloading")

	// Converting, with the visibility keepalive running alongside.
	start = time.Now()
	extendStop := make(chan struct{})
	go p.extendLoop(ctx, d, item.ID, extendStop)
	res, err := p.convert.Convert(ctx, convert.Input{
		WorkItemID:  item.ID,
		Path:        path,
		Locator:     item.SourceLocator,
		ContentType: item.ContentType,
	})
	close(extendStop)
	if err != nil {
		return p.settleFailure(ctx, d, item, err)
	}
	p.metrics.RecordStageDuration(start, "converting")

	// Embedding
	start = time.Now()
	content := embedding.Content{Text: res.Text}
	if isImageType(item.ContentType) {
		img, readErr := os.ReadFile(path)
		if readErr != nil {
			return p.settleFailure(ctx, d, item,
				fault.New(fault.Transient, "embedding", readErr).WithLocator(item.SourceLocator))
		}
		content.Image = img
	}
	vec, err := p.embed.Get(ctx, content)
	if err != nil {
		return p.settleFailure(ctx, d, item, err)
	}
	p.metrics.RecordStageDuration(start, "embedding")

	// Indexing
	start = time.Now()
	err = p.index.Upsert(ctx, vectorindex.Document{
		ID:     item.ID,
		Vector: vec,
		Metadata: map[string]any{
			"source_locator": item.SourceLocator,
			"content_type":   item.ContentType,
			"page_count":     int64(res.PageCount),
			"processor":      string(res.Processor),
		},
		IndexedAt: time.Now().UTC(),
	})
	if err != nil {
		return p.settleFailure(ctx, d, item, err)
	}
	p.metrics.RecordStageDuration(start, "indexing")

	// Acknowledged
	if err := d.Ack(); err != nil {
		// The work is indexed; a lost ack means a redelivery that will
		// overwrite the same document. Log it and move on.
		p.log.Warn("ack failed after successful processing", err, map[string]interface{}{
			"work_item_id": item.ID,
		})
	}
	p.metrics.IncrementItems("success")
	p.log.Info("work item indexed", nil, map[string]interface{}{
		"work_item_id": item.ID,
		"processor":    string(res.Processor),
		"attempt":      item.AttemptCount,
	})
	return DispositionAcked
}

// settleFailure routes a failed work item: retryable kinds go back to
// the queue until the delivery attempts are spent, terminal kinds are
// recorded and dead-lettered.
func (p *Processor) settleFailure(ctx context.Context, d queue.Delivery, item queue.WorkItem, procErr error) Disposition {
	kind := fault.KindOf(procErr)
	stage := fault.StageOf(procErr)

	if fault.IsRetryable(procErr) {
		// A shutdown abort is not a spent attempt; the item goes back
		// regardless of its count.
		if p.maxAttempts > 0 && item.AttemptCount >= p.maxAttempts && ctx.Err() == nil {
			p.log.Error("work item exhausted its delivery attempts", procErr, map[string]interface{}{
				"work_item_id": item.ID,
				"kind":         kind.String(),
				"stage":        stage,
				"attempt":      item.AttemptCount,
				"max_attempts": p.maxAttempts,
			})
			return p.settleTerminal(ctx, d, item, stage, kind, procErr)
		}
		p.log.Warn("work item failed, returning to queue", procErr, map[string]interface{}{
			"work_item_id": item.ID,
			"kind":         kind.String(),
			"stage":        stage,
			"attempt":      item.AttemptCount,
		})
		if err := d.Requeue(); err != nil {
			p.log.Error("requeue failed, message will redeliver on visibility expiry", err, map[string]interface{}{
				"work_item_id": item.ID,
			})
		}
		p.metrics.IncrementItems("retry")
		return DispositionRequeued
	}

	if kind == fault.Protocol {
		// A programming or configuration error, not a bad input. Loud.
		p.log.Error("protocol fault in pipeline", procErr, map[string]interface{}{
			"work_item_id": item.ID,
			"stage":        stage,
		})
	} else {
		p.log.Error("work item failed terminally", procErr, map[string]interface{}{
			"work_item_id": item.ID,
			"kind":         kind.String(),
			"stage":        stage,
			"locator":      item.SourceLocator,
		})
	}

	return p.settleTerminal(ctx, d, item, stage, kind, procErr)
}

// settleTerminal records the failure and removes the message from
// rotation. Terminal settlement is never silent: the record and the
// dead-letter both happen, and a failed record still leaves the log
// line.
func (p *Processor) settleTerminal(ctx context.Context, d queue.Delivery, item queue.WorkItem, stage string, kind fault.Kind, procErr error) Disposition {
	rec := catalog.FailureRecord{
		WorkItemID:    item.ID,
		SourceLocator: item.SourceLocator,
		Stage:         stage,
		Kind:          kind.String(),
		Message:       procErr.Error(),
		AttemptCount:  item.AttemptCount,
	}
	if err := p.failures.RecordFailure(ctx, rec); err != nil {
		// Never let a failed record turn a terminal failure into a
		// silent drop twice over; the log line is the fallback record.
		p.log.Error("failed to persist failure record", err, map[string]interface{}{
			"work_item_id": item.ID,
		})
	}

	if err := d.DeadLetter(); err != nil {
		p.log.Error("dead-letter failed", err, map[string]interface{}{
			"work_item_id": item.ID,
		})
	}
	p.metrics.IncrementItems("terminal_failure")
	return DispositionDeadLettered
}

// extendLoop refreshes the message's visibility while conversion runs.
// Failures are logged and ignored.
func (p *Processor) extendLoop(ctx context.Context, d queue.Delivery, itemID string, stop <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.ExtendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Extend(ctx); err != nil {
				p.log.Warn("visibility extension failed", err, map[string]interface{}{
					"work_item_id": itemID,
				})
			}
		}
	}
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}
