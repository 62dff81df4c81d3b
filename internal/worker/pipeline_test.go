package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisearch/ingest/internal/catalog"
	"github.com/cisearch/ingest/internal/convert"
	"github.com/cisearch/ingest/internal/embedding"
	"github.com/cisearch/ingest/internal/fault"
	"github.com/cisearch/ingest/internal/queue"
	"github.com/cisearch/ingest/internal/vectorindex"
)

type fakeDelivery struct {
	item    queue.WorkItem
	itemErr error

	mu           sync.Mutex
	acked        int
	requeued     int
	deadlettered int
	extendErr    error
	extends      atomic.Int64
}

func (d *fakeDelivery) WorkItem() (queue.WorkItem, error) { return d.item, d.itemErr }
func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked++
	return nil
}
func (d *fakeDelivery) Requeue() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requeued++
	return nil
}
func (d *fakeDelivery) DeadLetter() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadlettered++
	return nil
}
func (d *fakeDelivery) Extend(ctx context.Context) error {
	d.extends.Add(1)
	return d.extendErr
}
func (d *fakeDelivery) Body() []byte { return nil }

type fakeStore struct {
	dir string
	err error
}

func (s *fakeStore) Download(ctx context.Context, locator string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	path := filepath.Join(s.dir, "payload")
	if err := os.WriteFile(path, []byte("%PDF-1.4 body"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type fakeConverter struct {
	fn func(ctx context.Context, in convert.Input) (*convert.Result, error)
}

func (c *fakeConverter) Convert(ctx context.Context, in convert.Input) (*convert.Result, error) {
	return c.fn(ctx, in)
}

type fakeEmbed struct {
	fn func(ctx context.Context, content embedding.Content) (embedding.Vector, error)
}

func (e *fakeEmbed) Get(ctx context.Context, content embedding.Content) (embedding.Vector, error) {
	return e.fn(ctx, content)
}

type fakeIndex struct {
	mu   sync.Mutex
	docs []vectorindex.Document
	err  error
}

func (i *fakeIndex) Upsert(ctx context.Context, doc vectorindex.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.docs = append(i.docs, doc)
	return nil
}

type fakeFailures struct {
	mu   sync.Mutex
	recs []catalog.FailureRecord
}

func (f *fakeFailures) RecordFailure(ctx context.Context, rec catalog.FailureRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) IncrementItems(result string)                      {}
func (nopMetrics) RecordStageDuration(start time.Time, stage string) {}

type nopLog struct{}

func (nopLog) Info(msg string, err error, fields ...map[string]interface{})  {}
func (nopLog) Warn(msg string, err error, fields ...map[string]interface{})  {}
func (nopLog) Error(msg string, err error, fields ...map[string]interface{}) {}

type pipelineFixture struct {
	processor *Processor
	store     *fakeStore
	converter *fakeConverter
	embed     *fakeEmbed
	index     *fakeIndex
	failures  *fakeFailures
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		store: &fakeStore{dir: t.TempDir()},
		converter: &fakeConverter{fn: func(ctx context.Context, in convert.Input) (*convert.Result, error) {
			return &convert.Result{WorkItemID: in.WorkItemID, Text: "extracted", PageCount: 2, Processor: convert.ProcessorSDK}, nil
		}},
		embed: &fakeEmbed{fn: func(ctx context.Context, content embedding.Content) (embedding.Vector, error) {
			return embedding.Vector{1, 0, 0}, nil
		}},
		index:    &fakeIndex{},
		failures: &fakeFailures{},
	}
	cfg := Config{WorkerID: "w1", Concurrency: 2, ExtendInterval: 10 * time.Millisecond, DrainTimeout: time.Second}
	f.processor = NewProcessor(cfg, 3, f.store, f.converter, f.embed, f.index, f.failures, nopMetrics{}, nopLog{})
	return f
}

func testItem(attempt int) queue.WorkItem {
	return queue.WorkItem{
		ID:            "wi-1",
		SourceLocator: "bucket/scan.pdf",
		SizeBytes:     1024,
		ContentType:   "application/pdf",
		AttemptCount:  attempt,
	}
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)
	d := &fakeDelivery{item: testItem(1)}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionAcked, disp)
	assert.Equal(t, 1, d.acked)
	assert.Zero(t, d.requeued)
	require.Len(t, f.index.docs, 1)
	doc := f.index.docs[0]
	assert.Equal(t, "wi-1", doc.ID)
	assert.Equal(t, embedding.Vector{1, 0, 0}, doc.Vector)
	assert.Equal(t, "bucket/scan.pdf", doc.Metadata["source_locator"])
	assert.Equal(t, int64(2), doc.Metadata["page_count"])
	assert.Empty(t, f.failures.recs)
}

func TestProcessThrottleThenSucceedsOnRedelivery(t *testing.T) {
	f := newFixture(t)
	throttled := true
	f.embed.fn = func(ctx context.Context, content embedding.Content) (embedding.Vector, error) {
		if throttled {
			throttled = false
			return nil, fault.New(fault.ResourceExhausted, "embedding", errors.New("rate limited"))
		}
		return embedding.Vector{1, 0, 0}, nil
	}

	first := &fakeDelivery{item: testItem(1)}
	disp := f.processor.Process(context.Background(), first)
	assert.Equal(t, DispositionRequeued, disp)
	assert.Equal(t, 1, first.requeued)
	assert.Zero(t, first.acked)
	assert.Empty(t, f.failures.recs)

	second := &fakeDelivery{item: testItem(2)}
	disp = f.processor.Process(context.Background(), second)
	assert.Equal(t, DispositionAcked, disp)
	assert.Equal(t, 1, second.acked)
	require.Len(t, f.index.docs, 1)
}

func TestProcessMalformedPayloadIsTerminal(t *testing.T) {
	f := newFixture(t)
	d := &fakeDelivery{itemErr: fault.New(fault.Invalid, "receiving", errors.New("bad json"))}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionDeadLettered, disp)
	assert.Equal(t, 1, d.deadlettered)
	require.Len(t, f.failures.recs, 1)
	assert.Equal(t, "invalid", f.failures.recs[0].Kind)
	assert.Empty(t, f.index.docs)
}

func TestProcessTerminalConvertFailureRecordsAndDeadLetters(t *testing.T) {
	f := newFixture(t)
	f.converter.fn = func(ctx context.Context, in convert.Input) (*convert.Result, error) {
		return nil, fault.New(fault.Invalid, "converting", convert.ErrSignatureMismatch).WithLocator(in.Locator)
	}
	d := &fakeDelivery{item: testItem(1)}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionDeadLettered, disp)
	require.Len(t, f.failures.recs, 1)
	rec := f.failures.recs[0]
	assert.Equal(t, "wi-1", rec.WorkItemID)
	assert.Equal(t, "converting", rec.Stage)
	assert.Equal(t, "invalid", rec.Kind)
	assert.Equal(t, 1, rec.AttemptCount)
	assert.Equal(t, "bucket/scan.pdf", rec.SourceLocator)
}

func TestProcessTransientIndexFailureRequeues(t *testing.T) {
	f := newFixture(t)
	f.index.err = fault.New(fault.Transient, "indexing", errors.New("connection reset"))
	d := &fakeDelivery{item: testItem(1)}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionRequeued, disp)
	assert.Equal(t, 1, d.requeued)
	assert.Empty(t, f.failures.recs)
}

func TestProcessExhaustedAttemptsDeadLetter(t *testing.T) {
	f := newFixture(t)
	f.index.err = fault.New(fault.Transient, "indexing", errors.New("connection reset"))

	// Attempt 2 of 3 still goes back to the queue.
	d := &fakeDelivery{item: testItem(2)}
	disp := f.processor.Process(context.Background(), d)
	assert.Equal(t, DispositionRequeued, disp)
	assert.Empty(t, f.failures.recs)

	// The final attempt settles terminally even for a retryable fault.
	d = &fakeDelivery{item: testItem(3)}
	disp = f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionDeadLettered, disp)
	assert.Zero(t, d.requeued)
	assert.Equal(t, 1, d.deadlettered)
	require.Len(t, f.failures.recs, 1)
	rec := f.failures.recs[0]
	assert.Equal(t, "wi-1", rec.WorkItemID)
	assert.Equal(t, 3, rec.AttemptCount)
}

func TestProcessUnclassifiedErrorDefaultsToRetry(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("i/o timeout")
	d := &fakeDelivery{item: testItem(1)}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionRequeued, disp)
}

func TestProcessCanceledContextReturnsItem(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	f.converter.fn = func(ctx context.Context, in convert.Input) (*convert.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Past the attempt ceiling on purpose: an aborted attempt is not a
	// spent attempt, so the item still goes back instead of dead-lettering.
	d := &fakeDelivery{item: testItem(4)}

	go func() {
		<-started
		cancel()
	}()

	disp := f.processor.Process(ctx, d)

	assert.Equal(t, DispositionRequeued, disp)
	assert.Equal(t, 1, d.requeued)
	assert.Zero(t, d.deadlettered)
	assert.Empty(t, f.failures.recs)
}

func TestProcessExtendsVisibilityDuringConversion(t *testing.T) {
	f := newFixture(t)
	f.converter.fn = func(ctx context.Context, in convert.Input) (*convert.Result, error) {
		time.Sleep(50 * time.Millisecond)
		return &convert.Result{WorkItemID: in.WorkItemID, Text: "slow", PageCount: 1, Processor: convert.ProcessorOCR}, nil
	}
	// Extension failures must not abort processing.
	d := &fakeDelivery{item: testItem(1), extendErr: fmt.Errorf("channel closed")}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionAcked, disp)
	assert.GreaterOrEqual(t, d.extends.Load(), int64(1))
}

func TestProcessAttachesImagePayloadForImageTypes(t *testing.T) {
	f := newFixture(t)
	var got embedding.Content
	f.embed.fn = func(ctx context.Context, content embedding.Content) (embedding.Vector, error) {
		got = content
		return embedding.Vector{1}, nil
	}
	item := testItem(1)
	item.ContentType = "image/png"
	d := &fakeDelivery{item: item}

	disp := f.processor.Process(context.Background(), d)

	assert.Equal(t, DispositionAcked, disp)
	assert.True(t, got.Multimodal())
}
