package cognates

import (
	"context"
	"errors"
	"log/slog"

	"github.com/japaniel/cognates/pkg/memo"
	"github.com/japaniel/cognates/pkg/sparql"
)

// Normalizer rewrites a search word into the form stored in the graph.
type Normalizer interface {
	Normalize(word, langCode string) string
}

// Fetcher runs cognate queries against a graph store. Results are memoized
// per parameter set; failures are not.
type Fetcher struct {
	exec       sparql.Executor
	normalizer Normalizer
	logger     *slog.Logger
	cached     *memo.Func[SearchParams, *CognateRaw]
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	store      memo.Store[*CognateRaw]
	normalizer Normalizer
	logger     *slog.Logger
}

// WithStore sets the memoization store (default: unbounded in-memory map).
func WithStore(s memo.Store[*CognateRaw]) FetcherOption {
	return func(o *fetcherOptions) { o.store = s }
}

// WithNormalizer applies n to search words before querying.
func WithNormalizer(n Normalizer) FetcherOption {
	return func(o *fetcherOptions) { o.normalizer = n }
}

// WithLogger sets the fetcher's logger.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(o *fetcherOptions) { o.logger = l }
}

// NewFetcher creates a Fetcher over exec.
func NewFetcher(exec sparql.Executor, opts ...FetcherOption) *Fetcher {
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	f := &Fetcher{
		exec:       exec,
		normalizer: o.normalizer,
		logger:     o.logger,
	}
	f.cached = memo.Wrap(f.fetch, memo.Config[SearchParams, *CognateRaw]{
		Store:  o.store,
		Key:    SearchParams.Key,
		Logger: o.logger,
	})
	return f
}

// FetchCognates returns the raw derivation edges for p. A query that matches
// nothing yields a CognateRaw with no edges, not an error. Endpoint failures
// are returned as *CognateError; invalid parameters are returned unwrapped.
func (f *Fetcher) FetchCognates(ctx context.Context, p SearchParams) (*CognateRaw, error) {
	return f.cached.Call(ctx, f.normalize(p))
}

// Forget drops the memoized result for p, so the next fetch queries the
// endpoint again.
func (f *Fetcher) Forget(p SearchParams) error {
	return f.cached.Forget(f.normalize(p))
}

func (f *Fetcher) normalize(p SearchParams) SearchParams {
	p = p.Normalized()
	if f.normalizer != nil && p.Word != "" {
		p.Word = f.normalizer.Normalize(p.Word, p.SrcLang)
	}
	return p
}

func (f *Fetcher) fetch(ctx context.Context, p SearchParams) (*CognateRaw, error) {
	query, err := BuildSparqlQuery(p)
	if err != nil {
		return nil, err
	}

	res, err := f.exec.Execute(ctx, query)
	if err != nil {
		f.logger.Warn("cognate query failed", "word", p.Word, "src", p.SrcLang, "trg", p.TrgLang, "error", err)
		return nil, classify(err)
	}

	rows := res.Rows()
	edges := make([]CognateEdge, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		e, ok := edgeFromBinding(row)
		if !ok {
			skipped++
			continue
		}
		edges = append(edges, e)
	}
	if skipped > 0 {
		f.logger.Debug("skipped incomplete bindings", "count", skipped)
	}
	f.logger.Info("cognate query complete", "word", p.Word, "src", p.SrcLang, "trg", p.TrgLang, "edges", len(edges))

	return &CognateRaw{Params: p, Edges: edges, Query: query}, nil
}

// classify turns an executor failure into a CognateError. Client timeouts are
// transport failures like any other; caller cancellation is reported by the
// memo wrapper before it reaches here.
func classify(err error) error {
	var he *sparql.HTTPError
	if errors.As(err, &he) {
		msg := he.Body
		if msg == "" {
			msg = "empty response body"
		}
		return &CognateError{Message: msg, Status: he.Status}
	}
	return &CognateError{Message: err.Error()}
}

func edgeFromBinding(b sparql.Binding) (CognateEdge, bool) {
	cw, ok1 := b.String(VarChildWord)
	cl, ok2 := b.String(VarChildLang)
	pw, ok3 := b.String(VarParentWord)
	pl, ok4 := b.String(VarParentLang)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return CognateEdge{}, false
	}
	return CognateEdge{
		ChildWord:        cw,
		ChildLang:        cl,
		ParentWord:       pw,
		ParentLang:       pl,
		ChildIsMorpheme:  b.Bool(VarChildAffix) || IsAffixLabel(cw),
		ParentIsMorpheme: b.Bool(VarParentAffix) || IsAffixLabel(pw),
	}, true
}

// IsAffixLabel reports whether a label is written as a bound morpheme.
func IsAffixLabel(word string) bool {
	return len(word) > 1 && (word[0] == '-' || word[len(word)-1] == '-')
}
