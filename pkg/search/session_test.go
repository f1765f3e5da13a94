package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/db"
)

// fakeFetcher links the searched word to a Latin ancestor with one English
// descendant per entry of targets.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []cognates.SearchParams
	targets []string
	err     error
}

func (f *fakeFetcher) FetchCognates(ctx context.Context, p cognates.SearchParams) (*cognates.CognateRaw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	raw := &cognates.CognateRaw{Params: p, Query: "SELECT " + p.Word}
	if len(f.targets) == 0 {
		return raw, nil
	}
	raw.Edges = append(raw.Edges, cognates.CognateEdge{
		ChildWord: p.Word, ChildLang: p.SrcLang, ParentWord: "digitus", ParentLang: "lat",
	})
	for _, t := range f.targets {
		raw.Edges = append(raw.Edges, cognates.CognateEdge{
			ChildWord: t, ChildLang: p.TrgLang, ParentWord: "digitus", ParentLang: "lat",
		})
	}
	return raw, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeWarmer struct {
	refs chan []cognates.WordRef
}

func (w *fakeWarmer) Warm(ctx context.Context, refs []cognates.WordRef) (int, error) {
	w.refs <- refs
	return len(refs), nil
}

func manyTargets(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%03d", i)
	}
	return out
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dedo() Params {
	return Params{Word: "dedo", SrcLang: "spa", TrgLang: "eng"}
}

func TestSubmitTwiceWithinIntervalFetchesOnce(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit"}}
	s, err := New(Config{Fetcher: f})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), dedo())
	require.ErrorIs(t, err, ErrRateLimited)

	assert.Equal(t, 1, f.count())
}

func TestSubmitAcceptedAfterInterval(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit"}}
	s, err := New(Config{Fetcher: f, MinInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)

	assert.Equal(t, 2, f.count())
}

func TestNewSessionNeverSearched(t *testing.T) {
	s, err := New(Config{Fetcher: &fakeFetcher{}})
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, StatusNeverSearched, st.Status)
	assert.Nil(t, st.Params)
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 1, st.MaxPage)
	assert.NotNil(t, st.Chains)
	assert.Empty(t, st.Chains)
}

func TestSubmitResults(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit", "digital"}}
	s, err := New(Config{Fetcher: f})
	require.NoError(t, err)

	st, err := s.Submit(context.Background(), Params{Word: " dedo ", SrcLang: "spa", TrgLang: "eng", Page: 4})
	require.NoError(t, err)

	assert.Equal(t, StatusResults, st.Status)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, "SELECT dedo", st.Query)
	require.Len(t, st.Chains, 2)
	assert.Equal(t, cognates.WordRef{Word: "digitus", LangCode: "lat"}, st.Chains[0].Ancestor)
	assert.Equal(t, []cognates.WordRef{{Word: "dedo", LangCode: "spa"}}, st.Chains[0].Src)
	assert.Equal(t, "dedo", f.calls[0].Word, "word is trimmed before fetching")
}

func TestSubmitEmptyResult(t *testing.T) {
	s, err := New(Config{Fetcher: &fakeFetcher{}})
	require.NoError(t, err)

	st, err := s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, st.Status)
	assert.Equal(t, 0, st.Total)
	require.NotNil(t, st.Params)
	assert.Equal(t, "dedo", st.Params.Word)
}

func TestSubmitEmptyWordClears(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit"}}
	conn := openDB(t)
	s, err := New(Config{Fetcher: f, DB: conn, MinInterval: time.Millisecond})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	st, err := s.Submit(context.Background(), Params{Word: "  ", SrcLang: "spa", TrgLang: "eng"})
	require.NoError(t, err)
	assert.Equal(t, StatusNeverSearched, st.Status)
	assert.Empty(t, st.Chains)
	assert.Nil(t, st.Params)
	assert.Equal(t, 1, f.count(), "an empty word is not fetched")

	saved, err := db.LoadSession(conn)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestSubmitFailureKeepsPreviousResults(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit"}}
	s, err := New(Config{Fetcher: f, MinInterval: time.Millisecond})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	f.setErr(&cognates.CognateError{Message: "Service Unavailable", Status: 503})
	st, err := s.Submit(context.Background(), Params{Word: "mano", SrcLang: "spa", TrgLang: "eng"})
	require.Error(t, err)
	ce, ok := cognates.AsCognateError(err)
	require.True(t, ok)
	assert.Equal(t, 503, ce.Status)

	assert.Equal(t, StatusError, st.Status)
	assert.Contains(t, st.Error, "Service Unavailable")
	assert.Equal(t, 1, st.Total, "previous results remain")
	assert.Equal(t, "dedo", st.Params.Word)

	// The next success clears the error.
	time.Sleep(5 * time.Millisecond)
	f.setErr(nil)
	st, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	assert.Equal(t, StatusResults, st.Status)
	assert.Empty(t, st.Error)
}

func TestSubmitCancelledRecordsNothing(t *testing.T) {
	f := &fakeFetcher{err: context.Canceled}
	s, err := New(Config{Fetcher: f})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := s.Submit(ctx, dedo())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, st)
	assert.Equal(t, StatusNeverSearched, s.State().Status)
}

func TestPagination(t *testing.T) {
	f := &fakeFetcher{targets: manyTargets(120)}
	s, err := New(Config{Fetcher: f})
	require.NoError(t, err)

	st, err := s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	assert.Equal(t, 120, st.Total)
	assert.Equal(t, 3, st.MaxPage)
	require.Len(t, st.Chains, PageSize)
	assert.Equal(t, "t000", st.Chains[0].Target().Word)

	st, err = s.SetPage(2)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, "t050", st.Chains[0].Target().Word)

	st, err = s.SetPage(9)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Page)
	assert.Len(t, st.Chains, 20)

	st, err = s.SetPage(0)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Page)
}

func TestSessionPersistsAndRestores(t *testing.T) {
	conn := openDB(t)
	f := &fakeFetcher{targets: manyTargets(60)}
	s, err := New(Config{Fetcher: f, DB: conn})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	_, err = s.SetPage(2)
	require.NoError(t, err)

	saved, err := db.LoadSession(conn)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "SELECT dedo", saved.Query)
	assert.Equal(t, 2, saved.Page)
	var raw cognates.CognateRaw
	require.NoError(t, json.Unmarshal([]byte(saved.RawResult), &raw))
	assert.Len(t, raw.Edges, 61)

	history, err := db.RecentSearches(conn, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 61, history[0].EdgeCount)

	restored, err := New(Config{Fetcher: f, DB: conn})
	require.NoError(t, err)
	st := restored.State()
	assert.Equal(t, StatusResults, st.Status)
	assert.Equal(t, 60, st.Total)
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, "SELECT dedo", st.Query)
	assert.Equal(t, 1, f.count(), "restoring does not fetch")
}

func TestResumeInitialSearch(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit"}}
	s, err := New(Config{Fetcher: f})
	require.NoError(t, err)

	st, err := s.Resume(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, 1, f.count())
	assert.Equal(t, InitialWord, f.calls[0].Word)
	assert.Equal(t, "spa", f.calls[0].SrcLang)
	assert.Equal(t, StatusResults, st.Status)
}

func TestResumeSameSearchOnlyMovesPage(t *testing.T) {
	conn := openDB(t)
	f := &fakeFetcher{targets: manyTargets(60)}
	s, err := New(Config{Fetcher: f, DB: conn, MinInterval: time.Millisecond})
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	st, err := s.Resume(context.Background(), url.Values{KeyWord: {"dedo"}, KeyPage: {"2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.count())
	assert.Equal(t, 2, st.Page)
}

func TestResumeDifferentSearchSubmits(t *testing.T) {
	f := &fakeFetcher{targets: []string{"digit"}}
	s, err := New(Config{Fetcher: f, MinInterval: time.Millisecond})
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	st, err := s.Resume(context.Background(), url.Values{KeyTrgLang: {"fra"}})
	require.NoError(t, err)
	require.Equal(t, 2, f.count())
	assert.Equal(t, cognates.SearchParams{Word: "dedo", SrcLang: "spa", TrgLang: "fra"}, f.calls[1])
	assert.Equal(t, "fra", st.Params.TrgLang)
}

func TestResumeRejectsBadValues(t *testing.T) {
	s, err := New(Config{Fetcher: &fakeFetcher{}})
	require.NoError(t, err)
	_, err = s.Resume(context.Background(), url.Values{KeyPage: {"two"}})
	require.Error(t, err)
}

func TestSubmitPrefetchesPageTargets(t *testing.T) {
	w := &fakeWarmer{refs: make(chan []cognates.WordRef, 1)}
	f := &fakeFetcher{targets: manyTargets(70)}
	s, err := New(Config{Fetcher: f, Prefetch: w})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), dedo())
	require.NoError(t, err)
	s.Close()

	select {
	case refs := <-w.refs:
		require.Len(t, refs, PageSize)
		assert.Equal(t, cognates.WordRef{Word: "t000", LangCode: "eng"}, refs[0])
	default:
		t.Fatal("expected the first page to be prefetched")
	}
}

func TestStatusMarshalsAsText(t *testing.T) {
	b, err := json.Marshal(State{Status: StatusEmpty, Chains: []cognates.CognateChain{}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"empty"`)
}

func TestDefinitionSeed(t *testing.T) {
	conn := openDB(t)
	require.NoError(t, db.SaveDefinition(conn, "digit", "eng", "<ol><li>finger</li></ol>"))

	seed, err := DefinitionSeed(conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{`["digit","eng"]`: "<ol><li>finger</li></ol>"}, seed)
}
