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
	"sync"
	"time"
)

// Suggester completes partial search words with the opensearch action.
// Each call supersedes the previous one: starting a new lookup cancels any
// lookup still in flight.
type Suggester struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSuggester creates a Suggester for the action API at endpoint.
func NewSuggester(endpoint string, timeout time.Duration, logger *slog.Logger) *Suggester {
	if endpoint == "" {
		endpoint = DefaultActionAPI
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Suggester{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Suggest returns titles starting with input. A lookup cancelled by a newer
// call (or by ctx) returns nil, nil.
func (s *Suggester) Suggest(ctx context.Context, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	out, err := s.fetch(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("suggestion lookup superseded", "input", input)
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *Suggester) fetch(ctx context.Context, input string) ([]string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse suggest endpoint: %w", err)
	}
	q := u.Query()
	q.Set("action", "opensearch")
	q.Set("search", input)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggest %q: %w", input, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest %q: status %s", input, resp.Status)
	}

	// [input, suggestions, descriptions, urls]
	var tuple []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&tuple); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Warn("undecodable suggestions, treating as empty", "input", input, "error", err)
		return []string{}, nil
	}
	var suggestions []string
	if len(tuple) > 1 {
		if err := json.Unmarshal(tuple[1], &suggestions); err != nil {
			s.logger.Warn("unexpected suggestion list", "input", input, "error", err)
		}
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return suggestions, nil
}
