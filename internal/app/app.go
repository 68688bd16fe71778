// Package app assembles the pricing service from configuration. It is shared by
// the HTTP server and the pricectl command.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pantrylens/backend/config"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/infrastructure/cache"
	"github.com/pantrylens/backend/internal/infrastructure/storage/memory"
	"github.com/pantrylens/backend/internal/infrastructure/storage/sqlstore"
	"github.com/pantrylens/backend/internal/logx"
	"github.com/pantrylens/backend/internal/usecase"
)

// ListWriter is implemented by list stores that can be seeded
type ListWriter interface {
	ReplaceList(ctx context.Context, listID string, items []domain.ShoppingListItem) error
}

// App holds the wired service and the resources it owns
type App struct {
	Pricing *usecase.PricingService
	Prices  domain.PriceRepository
	Lists   domain.ShoppingListRepository

	closers []func() error
}

// New opens storage and cache as configured and builds the pricing service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logx.Component("app")
	a := &App{}

	switch cfg.Storage.Driver {
	case "postgres", "sqlite":
		store, err := sqlstore.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
		}
		a.Prices = store
		a.Lists = store
		a.closers = append(a.closers, store.Close)
	default:
		a.Prices = memory.NewPriceStore()
		a.Lists = memory.NewShoppingListStore()
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("storage ready")

	var cacheRepo domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:       cfg.Cache.RedisURL,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cacheRepo = redisCache
		a.closers = append(a.closers, redisCache.Close)
	case "memory":
		memCache := cache.NewMemoryCache(0)
		cacheRepo = memCache
		a.closers = append(a.closers, memCache.Close)
	}
	logger.Info().Str("type", cfg.Cache.Type).Dur("ttl", cfg.Cache.TTL).Msg("cache ready")

	a.Pricing = usecase.NewPricingService(a.Prices, a.Lists, cacheRepo, usecase.PricingServiceConfig{
		CacheTTL:              cfg.Cache.TTL,
		LedgerWindow:          cfg.Pricing.LedgerWindow,
		VerificationThreshold: cfg.Pricing.VerificationThreshold,
		DefaultMaxDays:        cfg.Pricing.DefaultMaxDays,
		DefaultMaxStores:      cfg.Pricing.DefaultMaxStores,
		TopStoresLimit:        cfg.Pricing.TopStoresLimit,
		EnableDebugLogging:    cfg.Pricing.EnableDebugLogging,
	})

	return a, nil
}

// ListWriter returns the list store as a ListWriter when it supports seeding
func (a *App) ListWriter() (ListWriter, bool) {
	w, ok := a.Lists.(ListWriter)
	return w, ok
}

// Close releases storage and cache connections in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
