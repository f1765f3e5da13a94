// Package prefetch warms the definition cache for search results in the
// background and persists what it finds.
package prefetch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/db"
)

// DefinitionSource looks up a definition fragment for a word.
type DefinitionSource interface {
	DefinitionHTML(ctx context.Context, word, langCode string) (string, error)
}

// Options tune a Prefetcher.
type Options struct {
	Workers       int
	Queue         int
	BatchSize     int
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Prefetcher fetches definitions on a worker pool. Non-empty results are
// saved through a batch writer when a database is configured.
type Prefetcher struct {
	src    DefinitionSource
	pool   *WorkerPool
	writer *BatchWriter
	logger *slog.Logger

	mu     sync.Mutex
	warmed map[cognates.WordRef]struct{}

	fetched atomic.Int64
}

// New creates a Prefetcher. conn may be nil, in which case definitions only
// land in the source's own cache.
func New(src DefinitionSource, conn *sql.DB, opts Options) *Prefetcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Prefetcher{
		src:    src,
		pool:   NewWorkerPool(opts.Workers, opts.Queue),
		logger: logger,
		warmed: make(map[cognates.WordRef]struct{}),
	}
	p.pool.OnError = func(err error) {
		logger.Debug("prefetch job failed", "error", err)
	}
	if conn != nil {
		p.writer = NewBatchWriter(conn, opts.BatchSize, opts.FlushInterval, logger)
	}
	return p
}

// Start launches the workers.
func (p *Prefetcher) Start(ctx context.Context) {
	p.pool.Start(ctx)
}

// Warm queues a definition lookup for every ref not already warmed and
// returns how many were queued. It blocks while the queue is full.
func (p *Prefetcher) Warm(ctx context.Context, refs []cognates.WordRef) (int, error) {
	queued := 0
	for _, ref := range refs {
		if !p.claim(ref) {
			continue
		}
		ref := ref
		err := p.pool.SubmitCtx(ctx, func(ctx context.Context) error {
			return p.fetch(ctx, ref)
		})
		if err != nil {
			p.release(ref)
			return queued, err
		}
		queued++
	}
	if queued > 0 {
		p.logger.Debug("definitions queued for prefetch", "count", queued)
	}
	return queued, nil
}

// Fetched reports how many non-empty definitions were retrieved.
func (p *Prefetcher) Fetched() int64 { return p.fetched.Load() }

func (p *Prefetcher) fetch(ctx context.Context, ref cognates.WordRef) error {
	html, err := p.src.DefinitionHTML(ctx, ref.Word, ref.LangCode)
	if err != nil {
		p.release(ref)
		return err
	}
	if html == "" {
		return nil
	}
	p.fetched.Add(1)
	if p.writer == nil {
		return nil
	}
	return p.writer.Submit(func(ctx context.Context, exec db.DBExecutor) error {
		return db.SaveDefinition(exec, ref.Word, ref.LangCode, html)
	})
}

func (p *Prefetcher) claim(ref cognates.WordRef) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.warmed[ref]; ok {
		return false
	}
	p.warmed[ref] = struct{}{}
	return true
}

func (p *Prefetcher) release(ref cognates.WordRef) {
	p.mu.Lock()
	delete(p.warmed, ref)
	p.mu.Unlock()
}

// Close drains queued lookups and flushes pending writes.
func (p *Prefetcher) Close() error {
	p.pool.Close()
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
