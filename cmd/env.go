package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/akashaero/fairval/internal/provider"
	"github.com/akashaero/fairval/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "fairval.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSource() *provider.Client {
	return provider.NewClient(provider.Options{
		BaseURL:    cfg.Provider.BaseURL,
		UserAgent:  cfg.Provider.UserAgent,
		Timeout:    time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Provider.MaxRetries,
		RatePerSec: cfg.Provider.RatePerSec,
	})
}

// cachedFetch reads the snapshot cache before going to the provider, and
// fills the cache on a miss. A nil store skips caching.
func cachedFetch(ctx context.Context, st store.Store, src provider.Source, ticker string) (*provider.Snapshot, error) {
	if st != nil {
		if snap, err := st.GetSnapshot(ctx, ticker); err == nil && snap != nil {
			return snap, nil
		}
	}

	snap, err := src.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if st != nil {
		_ = st.PutSnapshot(ctx, snap, cfg.Provider.CacheTTL())
	}
	return snap, nil
}
