package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quillium/papersearch/pkg/fetch"
	"github.com/quillium/papersearch/pkg/index"
	"github.com/quillium/papersearch/pkg/model"
	"github.com/quillium/papersearch/pkg/schema"
	"github.com/quillium/papersearch/pkg/transform"
)

// Fetcher retrieves document metadata and optional fulltext from the
// metadata service.
type Fetcher interface {
	DocMetaAll(ctx context.Context, paperID string) ([]model.DocMeta, error)
	Fulltext(ctx context.Context, paperID string) (string, error)
}

// Writer persists normalized documents into the search index.
type Writer interface {
	EnsureIndex() error
	MappingVersion() (string, error)
	BulkUpsert(ctx context.Context, docs []model.Document) (index.BatchResult, error)
}

// Config tunes one indexing run.
type Config struct {
	// BatchSize is the number of documents per bulk write.
	BatchSize int
	// Concurrency is the number of papers fetched and normalized in parallel.
	Concurrency int
	// MaxAttempts bounds retries of transient fetch and index failures.
	MaxAttempts int
	// InitialInterval and MaxInterval shape the exponential retry backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// FetchFulltext enriches the current version of each paper with its
	// plain-text body when the fulltext service has one.
	FetchFulltext bool
	// Force continues an incremental run even when the live index carries a
	// different mapping version than this build.
	Force bool
	// Filter restricts which identifiers are processed; nil processes all.
	Filter *model.Filter
}

func (c *Config) withDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
}

// Orchestrator drives the indexing pipeline: fetch every version of a paper,
// normalize them together, and bulk-write the resulting documents. Fetch
// failures are retried with backoff, normalization failures never are, and
// per-document index failures are retried only when the engine marks them
// transient. Documents that exhaust their retries end up in the summary's
// dead letter list; a failed paper never aborts the run.
type Orchestrator struct {
	fetcher    Fetcher
	writer     Writer
	registry   *schema.Registry
	normalizer *transform.Normalizer
	cfg        Config
	logger     *logrus.Entry
}

func New(logger *logrus.Entry, registry *schema.Registry, fetcher Fetcher, writer Writer, cfg Config) *Orchestrator {
	cfg.withDefaults()
	return &Orchestrator{
		fetcher:    fetcher,
		writer:     writer,
		registry:   registry,
		normalizer: transform.NewNormalizer(logger, registry),
		cfg:        cfg,
		logger:     logger,
	}
}

// Run indexes the given paper identifiers. Identifiers may be versioned or
// versionless; every version of each named paper is (re)indexed so that the
// is_current and aggregate fields stay consistent across versions.
func (o *Orchestrator) Run(ctx context.Context, ids []string) (*Summary, error) {

	if err := o.gateMapping(); err != nil {
		return nil, err
	}
	if err := o.writer.EnsureIndex(); err != nil {
		return nil, err
	}

	summary := &Summary{}
	work := o.admit(ids, summary)
	o.logger.Infof("indexing %d papers with concurrency %d", len(work), o.cfg.Concurrency)

	docs := make(chan model.Document, o.cfg.BatchSize)
	queue := make(chan string)

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		defer close(queue)
		for _, id := range work {
			select {
			case queue <- id:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < o.cfg.Concurrency; i++ {
		grp.Go(func() error {
			for id := range queue {
				if err := o.process(gctx, id, docs, summary); err != nil {
					return err
				}
			}
			return nil
		})
	}

	flushDone := make(chan error, 1)
	go func() {
		flushDone <- o.drain(ctx, docs, summary)
	}()

	runErr := grp.Wait()
	close(docs)
	if err := <-flushDone; err != nil && runErr == nil {
		runErr = err
	}

	o.logger.Infof("run complete: %d written, %d dead-lettered, %d skipped",
		summary.Written, len(summary.DeadLetters), summary.Skipped)
	return summary, runErr
}

// gateMapping refuses an incremental run against an index whose mapping was
// built by a different schema version, since mixed analyzer output is
// silently wrong. Force overrides the gate for operators mid-migration.
func (o *Orchestrator) gateMapping() error {
	live, err := o.writer.MappingVersion()
	if err != nil {
		return err
	}
	want := o.registry.Version()
	if live == "" || live == want {
		return nil
	}
	if o.cfg.Force {
		o.logger.Warnf("live index mapping version %s differs from bundled version %s, continuing on force", live, want)
		return nil
	}
	return fmt.Errorf("agent: live index mapping version %s differs from bundled version %s; reindex into a fresh index or force the run", live, want)
}

// admit dedupes the identifier list down to versionless paper ids and applies
// the run filter.
func (o *Orchestrator) admit(ids []string, summary *Summary) []string {
	seen := map[string]bool{}
	var out []string
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		paperID, _ := model.SplitID(id)
		if seen[paperID] {
			continue
		}
		seen[paperID] = true
		if o.cfg.Filter != nil && !o.cfg.Filter.ValidIdentifier(paperID) {
			o.logger.Debugf("identifier %s excluded by run filter", paperID)
			atomic.AddInt64(&summary.Skipped, 1)
			continue
		}
		out = append(out, paperID)
	}
	return out
}

func (o *Orchestrator) process(ctx context.Context, paperID string, docs chan<- model.Document, summary *Summary) error {

	versions, err := o.fetchVersions(ctx, paperID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warnf("could not fetch %s: %s", paperID, err)
		atomic.AddInt64(&summary.FetchFailed, 1)
		summary.deadLetter(paperID, StageFetch, err.Error())
		return nil
	}
	atomic.AddInt64(&summary.Fetched, 1)

	for _, meta := range versions {
		doc, err := o.normalizer.Normalize(meta, versions)
		if err != nil {
			o.logger.Warnf("could not normalize %s: %s", meta.IDv(), err)
			atomic.AddInt64(&summary.TransformFailed, 1)
			summary.deadLetter(meta.IDv(), StageTransform, err.Error())
			continue
		}

		if o.cfg.FetchFulltext && doc.IsCurrent {
			o.enrichFulltext(ctx, &doc)
		}

		atomic.AddInt64(&summary.Normalized, 1)
		select {
		case docs <- doc:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// fetchVersions retrieves all versions of a paper, retrying transient
// metadata service failures. A missing paper is terminal.
func (o *Orchestrator) fetchVersions(ctx context.Context, paperID string) ([]model.DocMeta, error) {
	var versions []model.DocMeta
	op := func() error {
		got, err := o.fetcher.DocMetaAll(ctx, paperID)
		if err != nil {
			if fetch.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		versions = got
		return nil
	}
	if err := backoff.Retry(op, o.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return versions, nil
}

// enrichFulltext is best effort: many papers have no extracted text, and a
// missing or failing fulltext service never blocks metadata indexing.
func (o *Orchestrator) enrichFulltext(ctx context.Context, doc *model.Document) {
	text, err := o.fetcher.Fulltext(ctx, doc.PaperID)
	switch {
	case err == nil:
		doc.Fulltext = text
	case fetch.IsNotFound(err):
	default:
		o.logger.Warnf("fulltext for %s unavailable: %s", doc.PaperID, err)
	}
}

func (o *Orchestrator) retryPolicy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.cfg.InitialInterval
	bo.MaxInterval = o.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	return backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(o.cfg.MaxAttempts-1))
}

// drain batches the normalized documents and writes them out. Writes are
// serialized through one flusher so bulk sizing stays predictable regardless
// of worker concurrency.
func (o *Orchestrator) drain(ctx context.Context, docs <-chan model.Document, summary *Summary) error {
	batch := make([]model.Document, 0, o.cfg.BatchSize)
	for doc := range docs {
		batch = append(batch, doc)
		if len(batch) >= o.cfg.BatchSize {
			if err := o.writeBatch(ctx, batch, summary); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		return o.writeBatch(ctx, batch, summary)
	}
	return nil
}

// writeBatch bulk-writes one batch, retrying the transient subset with
// backoff. Documents the engine rejects permanently, or that stay transient
// past the attempt budget, are dead-lettered.
func (o *Orchestrator) writeBatch(ctx context.Context, batch []model.Document, summary *Summary) error {

	byID := make(map[string]model.Document, len(batch))
	for _, doc := range batch {
		byID[doc.PaperIDv] = doc
	}

	bo := o.retryPolicy(ctx)
	pending := batch
	for {
		result, err := o.writer.BulkUpsert(ctx, pending)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warnf("bulk write of %d documents failed: %s", len(pending), err)
			if !o.wait(ctx, bo) {
				for _, doc := range pending {
					atomic.AddInt64(&summary.IndexFailed, 1)
					summary.deadLetter(doc.PaperIDv, StageIndex, err.Error())
				}
				return nil
			}
			continue
		}

		atomic.AddInt64(&summary.Written, int64(len(result.Written())))
		for _, item := range result.Rejected() {
			o.logger.Warnf("engine rejected %s: %s", item.PaperIDv, item.Reason)
			atomic.AddInt64(&summary.IndexFailed, 1)
			summary.deadLetter(item.PaperIDv, StageIndex, item.Reason)
		}

		retryable := result.Retryable()
		if len(retryable) == 0 {
			return nil
		}
		if !o.wait(ctx, bo) {
			for _, item := range retryable {
				atomic.AddInt64(&summary.IndexFailed, 1)
				summary.deadLetter(item.PaperIDv, StageIndex, item.Reason)
			}
			return nil
		}

		pending = pending[:0]
		for _, item := range retryable {
			pending = append(pending, byID[item.PaperIDv])
		}
		o.logger.Debugf("retrying %d transient bulk failures", len(pending))
	}
}

// wait sleeps for the next backoff interval; false means the attempt budget
// or the context is exhausted.
func (o *Orchestrator) wait(ctx context.Context, bo backoff.BackOff) bool {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		return false
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
