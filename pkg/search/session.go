// Package search holds the state of a cognate search session: the last
// submitted parameters, their result, the page being viewed and the last
// error. The session survives restarts through the database.
package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/db"
)

// PageSize is the number of chains on a page.
const PageSize = 50

// ErrRateLimited is returned for a submission that follows the previous
// accepted one too closely. Nothing is fetched for it.
var ErrRateLimited = errors.New("search: submitted too soon after the previous search")

// Status summarises what a session has to show.
type Status int

const (
	StatusNeverSearched Status = iota
	StatusEmpty
	StatusError
	StatusResults
)

func (s Status) String() string {
	switch s {
	case StatusNeverSearched:
		return "never_searched"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	case StatusResults:
		return "results"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Fetcher retrieves raw cognate results.
type Fetcher interface {
	FetchCognates(ctx context.Context, p cognates.SearchParams) (*cognates.CognateRaw, error)
}

// Warmer prefetches definitions of words.
type Warmer interface {
	Warm(ctx context.Context, refs []cognates.WordRef) (int, error)
}

// Config wires a Session.
type Config struct {
	Fetcher Fetcher
	// DB persists the session. Optional.
	DB *sql.DB
	// Prefetch is handed the targets of the first page after each
	// successful search. Optional.
	Prefetch Warmer
	Hydrate  cognates.HydrateOptions
	// MinInterval is the minimum spacing of accepted submissions. Zero
	// means one second.
	MinInterval time.Duration
	Logger      *slog.Logger
}

// State is a snapshot of a session for display.
type State struct {
	Status Status  `json:"status"`
	Error  string  `json:"error,omitempty"`
	Params *Params `json:"params,omitempty"`
	Query  string  `json:"query,omitempty"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	// MaxPage is at least 1, even with no results.
	MaxPage int                     `json:"maxPage"`
	Chains  []cognates.CognateChain `json:"chains"`
}

// Session is safe for concurrent use.
type Session struct {
	fetcher  Fetcher
	conn     *sql.DB
	warmer   Warmer
	logger   *slog.Logger
	limiter  *rate.Limiter
	hydrator *cognates.Hydrator
	bg       sync.WaitGroup

	mu    sync.Mutex
	last  *Params
	raw   *cognates.CognateRaw
	query string
	page  int
	err   error
}

// New creates a session, restoring the persisted one when cfg.DB is set.
func New(cfg Config) (*Session, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("search: fetcher is required")
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		fetcher:  cfg.Fetcher,
		conn:     cfg.DB,
		warmer:   cfg.Prefetch,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		hydrator: &cognates.Hydrator{Options: cfg.Hydrate},
		page:     1,
	}
	if s.conn != nil {
		if err := s.restore(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) restore() error {
	saved, err := db.LoadSession(s.conn)
	if err != nil {
		return err
	}
	if saved == nil {
		return nil
	}
	p := paramsFromSession(saved)
	s.last = &p
	s.query = saved.Query
	s.page = max(saved.Page, 1)
	if saved.RawResult != "" {
		var raw cognates.CognateRaw
		if err := json.Unmarshal([]byte(saved.RawResult), &raw); err != nil {
			s.logger.Warn("discarding unreadable persisted result", "error", err)
		} else {
			s.raw = &raw
		}
	}
	s.logger.Debug("session restored", "word", p.Word, "srcLang", p.SrcLang, "trgLang", p.TrgLang)
	return nil
}

// Submit runs a search for p unless it follows the previous accepted
// submission within the minimum interval, in which case ErrRateLimited is
// returned and nothing is fetched. An empty word clears the session.
//
// On a failed search the previous results stay in place, the failure is
// recorded in the returned state and also returned as the error. A
// cancelled search records nothing.
func (s *Session) Submit(ctx context.Context, p Params) (*State, error) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return s.submit(ctx, p)
}

func (s *Session) submit(ctx context.Context, p Params) (*State, error) {
	if strings.TrimSpace(p.Word) == "" {
		s.clear()
		return s.State(), nil
	}

	start := time.Now()
	raw, err := s.fetcher.FetchCognates(ctx, p.Search())
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.logger.Warn("search failed", "word", p.Word, "srcLang", p.SrcLang, "trgLang", p.TrgLang, "error", err)
		return s.State(), err
	}

	p.Page = 1
	s.mu.Lock()
	s.err = nil
	s.last = &p
	s.raw = raw
	s.query = raw.Query
	s.page = 1
	s.mu.Unlock()

	s.logger.Info("search completed",
		"word", p.Word, "srcLang", p.SrcLang, "trgLang", p.TrgLang,
		"edges", len(raw.Edges), "duration", time.Since(start))
	s.persist(p, raw)

	st := s.State()
	s.prefetch(ctx, st.Chains)
	return st, nil
}

func (s *Session) clear() {
	s.mu.Lock()
	s.last = nil
	s.raw = nil
	s.query = ""
	s.page = 1
	s.err = nil
	s.mu.Unlock()
	if s.conn != nil {
		if err := db.ClearSession(s.conn); err != nil {
			s.logger.Warn("failed to clear persisted session", "error", err)
		}
	}
}

func (s *Session) persist(p Params, raw *cognates.CognateRaw) {
	if s.conn == nil {
		return
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		s.logger.Warn("failed to encode result", "error", err)
		return
	}
	err = db.SaveSession(s.conn, db.Session{
		Word:         p.Word,
		SrcLang:      p.SrcLang,
		TrgLang:      p.TrgLang,
		AllowAffixes: p.AllowPrefixesAndSuffixes,
		Query:        raw.Query,
		RawResult:    string(encoded),
		Page:         1,
	})
	if err != nil {
		s.logger.Warn("failed to persist session", "error", err)
		return
	}
	_, err = db.RecordSearch(s.conn, db.SearchRecord{
		Word:         p.Word,
		SrcLang:      p.SrcLang,
		TrgLang:      p.TrgLang,
		AllowAffixes: p.AllowPrefixesAndSuffixes,
		Query:        raw.Query,
		EdgeCount:    len(raw.Edges),
	})
	if err != nil {
		s.logger.Warn("failed to record search", "error", err)
	}
}

// prefetch warms the definitions of the cognates on a page in the
// background. The lookups outlive ctx.
func (s *Session) prefetch(ctx context.Context, chains []cognates.CognateChain) {
	if s.warmer == nil || len(chains) == 0 {
		return
	}
	refs := targets(chains)
	ctx = context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if n, err := s.warmer.Warm(ctx, refs); err != nil {
			s.logger.Debug("definition prefetch stopped", "queued", n, "error", err)
		}
	}()
}

func targets(chains []cognates.CognateChain) []cognates.WordRef {
	seen := make(map[cognates.WordRef]struct{}, len(chains))
	refs := make([]cognates.WordRef, 0, len(chains))
	for _, c := range chains {
		t := c.Target()
		if t.Word == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		refs = append(refs, t)
	}
	return refs
}

// Resume reconciles request values with the persisted session, the way a
// shared link is opened. With nothing persisted and no values, the initial
// word is searched. Values that describe a different search than the
// persisted one are submitted; otherwise only the page is applied.
func (s *Session) Resume(ctx context.Context, v url.Values) (*State, error) {
	s.mu.Lock()
	var persisted *Params
	if s.last != nil {
		p := *s.last
		p.Page = s.page
		persisted = &p
	}
	s.mu.Unlock()

	if persisted == nil && !HasSearchValues(v) {
		p := DefaultParams()
		p.Word = InitialWord
		return s.Submit(ctx, p)
	}
	p, err := MergeWithPersisted(v, persisted)
	if err != nil {
		return nil, err
	}
	if persisted == nil || !p.SameSearch(*persisted) {
		return s.Submit(ctx, p)
	}
	return s.SetPage(p.Page)
}

// SetPage moves to page n, clamped to the available pages.
func (s *Session) SetPage(n int) (*State, error) {
	s.mu.Lock()
	total := len(s.hydrator.Hydrate(s.raw))
	s.page = clampPage(n, maxPage(total))
	page := s.page
	searched := s.last != nil
	s.mu.Unlock()

	if s.conn != nil && searched {
		if err := db.UpdateSessionPage(s.conn, page); err != nil {
			return nil, err
		}
	}
	return s.State(), nil
}

// State returns a snapshot of the current page.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	chains := s.hydrator.Hydrate(s.raw)
	st := &State{
		Query:   s.query,
		Total:   len(chains),
		MaxPage: maxPage(len(chains)),
	}
	st.Page = clampPage(s.page, st.MaxPage)
	lo, hi := pageBounds(st.Page, st.Total)
	st.Chains = chains[lo:hi]
	if s.last != nil {
		p := *s.last
		p.Page = st.Page
		st.Params = &p
	}

	switch {
	case s.err != nil:
		st.Status = StatusError
		st.Error = s.err.Error()
	case s.last == nil:
		st.Status = StatusNeverSearched
	case st.Total == 0:
		st.Status = StatusEmpty
	default:
		st.Status = StatusResults
	}
	return st
}

// Close waits for background prefetches started by the session.
func (s *Session) Close() {
	s.bg.Wait()
}

func maxPage(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

func clampPage(n, maxN int) int {
	return min(max(n, 1), maxN)
}

func pageBounds(page, total int) (int, int) {
	lo := min((page-1)*PageSize, total)
	hi := min(lo+PageSize, total)
	return lo, hi
}
