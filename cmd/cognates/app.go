package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/viper"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/config"
	"github.com/japaniel/cognates/pkg/db"
	"github.com/japaniel/cognates/pkg/lemma"
	"github.com/japaniel/cognates/pkg/logger"
	"github.com/japaniel/cognates/pkg/memo"
	"github.com/japaniel/cognates/pkg/prefetch"
	"github.com/japaniel/cognates/pkg/search"
	"github.com/japaniel/cognates/pkg/sparql"
	"github.com/japaniel/cognates/pkg/wiktionary"
)

// app holds the components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	conn       *sql.DB
	cache      *badger.DB
	fetcher    *cognates.Fetcher
	dict       *wiktionary.Client
	suggester  *wiktionary.Suggester
	prefetcher *prefetch.Prefetcher
	session    *search.Session
}

// newApp wires the components from configuration. Background definition
// prefetching only runs when warm is set and the configuration allows it.
func newApp(ctx context.Context, warm bool) (a *app, err error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg, logger: log}
	partial := a
	defer func() {
		if err != nil {
			partial.Close()
		}
	}()

	a.conn, err = db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Debug("database ready", "path", cfg.Database.Path)

	rawStore, sectionStore, defStore, err := a.stores()
	if err != nil {
		return nil, err
	}

	client := sparql.NewClient(cfg.Sparql.Endpoint, cfg.Sparql.Timeout)
	client.Logger = log
	var exec sparql.Executor = client
	if cfg.CircuitBreaker.Enabled {
		exec = sparql.NewBreakerExecutor(exec, sparql.BreakerSettings{
			Name:             "sparql",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
			Logger:           log,
		})
	}

	opts := []cognates.FetcherOption{cognates.WithStore(rawStore), cognates.WithLogger(log)}
	if cfg.Lemma.Enabled {
		norm, err := lemma.NewNormalizer(log)
		if err != nil {
			return nil, fmt.Errorf("failed to create lemma normalizer: %w", err)
		}
		opts = append(opts, cognates.WithNormalizer(norm))
	}
	a.fetcher = cognates.NewFetcher(exec, opts...)

	a.dict, err = wiktionary.NewClient(wiktionary.Config{
		RESTBase:        cfg.Wiktionary.RESTBase,
		WebBase:         cfg.Wiktionary.WebBase,
		FinderBase:      cfg.Wiktionary.FinderBase,
		Timeout:         cfg.Wiktionary.Timeout,
		DefinitionStore: defStore,
		SectionStore:    sectionStore,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}
	a.suggester = wiktionary.NewSuggester(cfg.Wiktionary.ActionAPI, cfg.Wiktionary.Timeout, log)

	var warmer search.Warmer
	if warm && cfg.Prefetch.Enabled {
		a.prefetcher = prefetch.New(a.dict, a.conn, prefetch.Options{
			Workers:   cfg.Prefetch.Workers,
			BatchSize: cfg.Prefetch.BatchSize,
			Logger:    log,
		})
		a.prefetcher.Start(ctx)
		warmer = a.prefetcher
	}

	a.session, err = search.New(search.Config{
		Fetcher:  a.fetcher,
		DB:       a.conn,
		Prefetch: warmer,
		Hydrate: cognates.HydrateOptions{
			IncludeIdentityChains: cfg.Search.IncludeIdentityChains,
			MaxPaths:              cfg.Search.MaxPaths,
		},
		MinInterval: cfg.Search.MinInterval,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// stores builds the memoization stores: badger when a cache directory is
// configured, otherwise process memory. The definition store is seeded with
// the definitions persisted in the session database.
func (a *app) stores() (memo.Store[*cognates.CognateRaw], memo.Store[[]wiktionary.Section], memo.Store[string], error) {
	seed, err := search.DefinitionSeed(a.conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load definitions: %w", err)
	}

	if a.cfg.Cache.Dir == "" {
		return memo.NewMapStore[*cognates.CognateRaw](nil),
			memo.NewMapStore[[]wiktionary.Section](nil),
			memo.NewMapStore(seed),
			nil
	}

	a.cache, err = memo.OpenBadger(memo.BadgerConfig{Path: a.cfg.Cache.Dir, Logger: a.logger})
	if err != nil {
		return nil, nil, nil, err
	}
	defs := memo.NewBadgerStore[string](a.cache, "definition/")
	for k, v := range seed {
		if err := defs.Store(k, v); err != nil {
			return nil, nil, nil, err
		}
	}
	return memo.NewBadgerStore[*cognates.CognateRaw](a.cache, "cognates/"),
		memo.NewBadgerStore[[]wiktionary.Section](a.cache, "sections/"),
		defs,
		nil
}

// Close waits for background work and releases resources.
func (a *app) Close() error {
	var errs []error
	if a.session != nil {
		a.session.Close()
	}
	if a.prefetcher != nil {
		errs = append(errs, a.prefetcher.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	return errors.Join(errs...)
}
