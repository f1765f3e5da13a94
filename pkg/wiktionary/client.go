// Package wiktionary fetches dictionary entries for display alongside
// cognate results: definitions, link rewriting and search suggestions.
package wiktionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/dom"

	"github.com/japaniel/cognates/pkg/memo"
)

const (
	DefaultRESTBase  = "https://en.wiktionary.org/api"
	DefaultWebBase   = "https://en.wiktionary.org"
	DefaultActionAPI = "https://en.wiktionary.org/w/api.php"

	maxBodySize = 10 * 1024 * 1024
	userAgent   = "cognates-cli"
)

// Config configures a Client. Zero values fall back to the public English
// Wiktionary and in-memory caches.
type Config struct {
	RESTBase   string
	WebBase    string
	FinderBase string
	Timeout    time.Duration
	HTTPClient *http.Client
	Languages  *Languages
	// DefinitionStore backs the definition cache. Seed it with persisted
	// definitions (see DefinitionKey) to skip the network after a restart.
	DefinitionStore memo.Store[string]
	SectionStore    memo.Store[[]Section]
	Logger          *slog.Logger
}

// Client reads entries through the Wiktionary REST API.
type Client struct {
	restBase string
	webBase  *url.URL
	http     *http.Client
	langs    *Languages
	link     func(word, langCode string) string
	logger   *slog.Logger

	sections    *memo.Func[string, []Section]
	definitions *memo.Func[definitionArgs, string]
}

type definitionArgs struct {
	Word string
	Lang string
}

// DefinitionKey is the cache key DefinitionHTML stores a word's definition
// under.
func DefinitionKey(word, langCode string) string {
	b, _ := json.Marshal([]string{word, langCode})
	return string(b)
}

// NewClient creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RESTBase == "" {
		cfg.RESTBase = DefaultRESTBase
	}
	if cfg.WebBase == "" {
		cfg.WebBase = DefaultWebBase
	}
	web, err := url.Parse(cfg.WebBase)
	if err != nil {
		return nil, fmt.Errorf("parse wiki base %q: %w", cfg.WebBase, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	langs := cfg.Languages
	if langs == nil {
		langs = DefaultLanguages()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	finder := cfg.FinderBase
	if finder == "" {
		finder = "/"
	}

	c := &Client{
		restBase: strings.TrimRight(cfg.RESTBase, "/"),
		webBase:  web,
		http:     hc,
		langs:    langs,
		link:     FinderURL(finder),
		logger:   logger,
	}
	c.sections = memo.Wrap(c.fetchSections, memo.Config[string, []Section]{
		Store:  cfg.SectionStore,
		Logger: logger,
	})
	c.definitions = memo.Wrap(c.definition, memo.Config[definitionArgs, string]{
		Store:  cfg.DefinitionStore,
		Key:    func(a definitionArgs) string { return DefinitionKey(a.Word, a.Lang) },
		Logger: logger,
	})
	return c, nil
}

// Languages returns the client's language table.
func (c *Client) Languages() *Languages { return c.langs }

// FetchSections returns the sections of word's page. A page that does not
// exist has no sections.
func (c *Client) FetchSections(ctx context.Context, word string) ([]Section, error) {
	return c.sections.Call(ctx, word)
}

func (c *Client) fetchSections(ctx context.Context, word string) ([]Section, error) {
	endpoint := fmt.Sprintf("%s/rest_v1/page/mobile-sections/%s", c.restBase, Wikify(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sections for %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []Section{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sections for %q: status %s", word, resp.Status)
	}

	var body sectionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sections for %q: %w", word, err)
	}
	return body.sections(), nil
}

// DefinitionHTML returns the first definition list of word's entry in the
// given language, with links rewritten for in-app navigation. A missing
// entry yields "". Lookup failures are logged and also yield "", so the only
// error returned is the caller's own cancellation.
func (c *Client) DefinitionHTML(ctx context.Context, word, langCode string) (string, error) {
	html, err := c.definitions.Call(ctx, definitionArgs{Word: word, Lang: langCode})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		c.logger.Warn("definition lookup failed", "word", word, "lang", langCode, "error", err)
		return "", nil
	}
	return html, nil
}

func (c *Client) definition(ctx context.Context, a definitionArgs) (string, error) {
	sections, err := c.FetchSections(ctx, a.Word)
	if err != nil {
		return "", err
	}
	return c.extractDefinition(a.Word, a.Lang, sections)
}

func (c *Client) extractDefinition(word, langCode string, sections []Section) (string, error) {
	sec, ok := SelectDefinitionSection(sections, c.langs.NameOr(langCode))
	if !ok || sec.Text == "" {
		return "", nil
	}
	doc, err := dom.FastParse(strings.NewReader(sec.Text))
	if err != nil {
		return "", fmt.Errorf("parse definition of %q: %w", word, err)
	}
	doc = RewriteLinks(doc, word, RewriteOptions{
		WebBase:   c.webBase,
		Languages: c.langs,
		Link:      c.link,
	})
	return dom.OuterHTML(dom.QuerySelector(doc, "ol")), nil
}
