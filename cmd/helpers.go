package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-recon/internal/edgar"
	"github.com/sells-group/edgar-recon/internal/fetcher"
	"github.com/sells-group/edgar-recon/internal/resolver"
	"github.com/sells-group/edgar-recon/internal/similarity"
	"github.com/sells-group/edgar-recon/internal/store"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "edgar-recon.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.EDGAR.UserAgent,
		Timeout:      time.Duration(cfg.EDGAR.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.EDGAR.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

func initClient(f fetcher.Fetcher) *edgar.Client {
	return edgar.NewClient(f, cfg.EDGAR.DataBaseURL, cfg.EDGAR.FilesBaseURL)
}

func loadTaxonomy(ctx context.Context, f fetcher.Fetcher) (*taxonomy.Store, error) {
	loader := taxonomy.NewLoader(f, cfg.Taxonomy.BaseURL, cfg.Taxonomy.Versions)
	return loader.Load(ctx)
}

// initScorer builds the similarity scorer the config names.
func initScorer(ts *taxonomy.Store, name string) (similarity.Scorer, error) {
	if name == "" {
		name = cfg.Resolve.Scorer
	}
	norm := similarity.NewNormalizer(similarity.DefaultSynonyms)
	switch name {
	case "textual":
		return similarity.NewTextualScorer(ts, norm), nil
	case "proximity":
		return similarity.NewProximityScorer(ts, norm), nil
	case "hybrid":
		return similarity.NewHybridScorer(ts, norm, cfg.Resolve.Alpha), nil
	case "depth":
		return similarity.NewDepthDiffScorer(ts), nil
	case "tree":
		return similarity.NewTreeDistanceScorer(ts), nil
	default:
		return nil, eris.Errorf("unknown scorer: %s", name)
	}
}

func initResolver(ts *taxonomy.Store, scorerName string) (*resolver.Resolver, error) {
	scorer, err := initScorer(ts, scorerName)
	if err != nil {
		return nil, err
	}
	return resolver.New(ts, scorer), nil
}

// resolveCIK turns --cik/--ticker flags into a CIK, preferring an
// explicit CIK.
func resolveCIK(ctx context.Context, client *edgar.Client, cik int64, ticker string) (int64, error) {
	if cik != 0 {
		return cik, nil
	}
	if ticker == "" {
		return 0, eris.New("either --cik or --ticker is required")
	}
	return client.CIKForTicker(ctx, ticker)
}
