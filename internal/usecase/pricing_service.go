package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/logx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	cheapestCachePrefix = "cheapest:"
	maxLookbackDays     = 3650
)

// PricingServiceConfig holds configuration for the pricing service
type PricingServiceConfig struct {
	CacheTTL              time.Duration
	LedgerWindow          time.Duration
	VerificationThreshold int
	DefaultMaxDays        int
	DefaultMaxStores      int
	TopStoresLimit        int
	EnableDebugLogging    bool
	Now                   func() time.Time
}

// PricingService is the entry point for recording prices and planning store visits
type PricingService struct {
	ledger   *PriceLedger
	query    *PriceQuery
	analyzer *CoverageAnalyzer
	selector *StoreSelector

	lists domain.ShoppingListRepository
	cache domain.CacheRepository

	// generation is bumped after every recorded price; lookups that saw a
	// different generation must not leave their answer in the cache
	generation atomic.Uint64

	cacheTTL         time.Duration
	defaultMaxDays   int
	defaultMaxStores int
	topStoresLimit   int
	debug            bool
	logger           zerolog.Logger
}

// NewPricingService creates a new pricing service with dependencies.
// lists and cache may be nil.
func NewPricingService(
	prices domain.PriceRepository,
	lists domain.ShoppingListRepository,
	cache domain.CacheRepository,
	config PricingServiceConfig,
) *PricingService {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	maxDays := config.DefaultMaxDays
	if maxDays <= 0 {
		maxDays = 90
	}

	maxStores := config.DefaultMaxStores
	if maxStores <= 0 {
		maxStores = 3
	}

	topStores := config.TopStoresLimit
	if topStores <= 0 {
		topStores = 10
	}

	return &PricingService{
		ledger: NewPriceLedger(prices, LedgerConfig{
			Window:                config.LedgerWindow,
			VerificationThreshold: config.VerificationThreshold,
			Now:                   now,
		}),
		query:            NewPriceQuery(prices, now),
		analyzer:         NewCoverageAnalyzer(prices, now),
		selector:         NewStoreSelector(),
		lists:            lists,
		cache:            cache,
		cacheTTL:         cacheTTL,
		defaultMaxDays:   maxDays,
		defaultMaxStores: maxStores,
		topStoresLimit:   topStores,
		debug:            config.EnableDebugLogging,
		logger:           logx.Component("pricing_service"),
	}
}

// RecordPrice stores a price report and drops cached cheapest-store answers
func (s *PricingService) RecordPrice(ctx context.Context, report *domain.PriceReport) (*domain.PriceObservation, error) {
	obs, err := s.ledger.RecordPrice(ctx, report)
	if err != nil {
		return nil, err
	}

	s.generation.Add(1)
	if s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, cheapestCachePrefix); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate cheapest-store cache")
		}
	}

	return obs, nil
}

// CheapestStore looks up the cheapest store for an item.
// Flow: check cache -> query ledger -> cache -> return
func (s *PricingService) CheapestStore(ctx context.Context, itemName string, maxDays int) (*domain.CheapestStoreResult, error) {
	maxDays, err := s.resolveMaxDays(maxDays)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s%s:%d", cheapestCachePrefix, domain.NormalizeItemName(itemName), maxDays)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		if s.debug {
			s.logger.Debug().Str("key", cacheKey).Msg("cheapest-store cache hit")
		}
		cached.ItemName = strings.TrimSpace(itemName)
		return cached, nil
	}

	generation := s.generation.Load()

	result, err := s.query.CheapestStore(ctx, itemName, maxDays)
	if err != nil {
		return nil, err
	}

	if err := s.setInCache(ctx, cacheKey, result, generation); err != nil {
		// Caching is best effort
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache cheapest-store result")
	}

	return result, nil
}

// OptimalStoresForList loads a stored shopping list and plans its store visits
func (s *PricingService) OptimalStoresForList(ctx context.Context, listID string, maxDays, maxStores int) (*domain.OptimalStoresResult, error) {
	if listID == "" {
		return nil, domain.NewValidationError("listId", "is required")
	}
	if s.lists == nil {
		return nil, domain.ErrListNotFound
	}

	items, err := s.lists.ListItems(ctx, listID)
	if err != nil {
		if errors.Is(err, domain.ErrListNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	return s.OptimalStores(ctx, items, maxDays, maxStores)
}

// OptimalStores picks at most maxStores stores for the list, assigns each priced
// item to its cheapest selected store and summarises the result.
func (s *PricingService) OptimalStores(ctx context.Context, items []domain.ShoppingListItem, maxDays, maxStores int) (*domain.OptimalStoresResult, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyList
	}

	maxDays, err := s.resolveMaxDays(maxDays)
	if err != nil {
		return nil, err
	}

	if maxStores < 0 {
		return nil, domain.NewValidationError("maxStores", "must not be negative")
	}
	if maxStores == 0 {
		maxStores = s.defaultMaxStores
	}

	items, err = domain.PrepareListItems(items)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analyzer.Analyze(ctx, items, maxDays)
	if err != nil {
		return nil, err
	}

	plan, err := s.selector.SelectOptimalStores(analysis.PerStore, analysis.ItemsWithPrices, len(items), maxStores)
	if err != nil {
		s.logger.Error().Err(err).Int("items", len(items)).Msg("store plan failed consistency check")
		return nil, err
	}

	allStores := analysis.PerStore
	if len(allStores) > s.topStoresLimit {
		allStores = allStores[:s.topStoresLimit]
	}

	if s.debug {
		s.logger.Debug().
			Int("items", len(items)).
			Int("candidates", len(analysis.PerStore)).
			Str("plan", string(plan.Type)).
			Str("totalCost", plan.TotalCost.String()).
			Msg("optimal stores computed")
	}

	return &domain.OptimalStoresResult{
		Summary:            summarize(items, analysis, plan),
		OptimalStoreVisit:  plan,
		AllStores:          allStores,
		ItemsWithPrices:    analysis.ItemsWithPrices,
		ItemsWithoutPrices: analysis.ItemsWithoutPrices,
	}, nil
}

// resolveMaxDays applies the default lookback and rejects absurd ones
func (s *PricingService) resolveMaxDays(maxDays int) (int, error) {
	if maxDays <= 0 {
		return s.defaultMaxDays, nil
	}
	if maxDays > maxLookbackDays {
		return 0, domain.NewValidationError("maxDays", fmt.Sprintf("must be at most %d", maxLookbackDays))
	}
	return maxDays, nil
}

// summarize rolls the analysis and plan up to list level
func summarize(items []domain.ShoppingListItem, analysis *domain.CoverageAnalysis, plan domain.OptimalPlan) domain.ShoppingListSummary {
	estimates := make(map[string]decimal.Decimal, len(items))
	estimatedTotal := decimal.Zero
	for _, item := range items {
		line := item.EstimatedPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		estimates[item.ID] = line
		estimatedTotal = estimatedTotal.Add(line)
	}

	estimatedAssigned := decimal.Zero
	for _, store := range plan.Stores {
		for _, assigned := range store.AssignedItems {
			estimatedAssigned = estimatedAssigned.Add(estimates[assigned.ID])
		}
	}

	return domain.ShoppingListSummary{
		TotalItems:            len(items),
		ItemsWithPriceData:    len(analysis.ItemsWithPrices),
		ItemsWithoutPriceData: len(analysis.ItemsWithoutPrices),
		EstimatedTotal:        estimatedTotal.Round(2),
		OptimizedTotal:        plan.TotalCost.Round(2),
		EstimatedSavings:      estimatedAssigned.Sub(plan.TotalCost).Round(2),
	}
}

// getFromCache retrieves a cheapest-store result from cache
func (s *PricingService) getFromCache(ctx context.Context, key string) (*domain.CheapestStoreResult, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var result domain.CheapestStoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, domain.ErrCacheMiss
	}

	return &result, nil
}

// setInCache stores a cheapest-store result in cache unless a price was
// recorded since the lookup started. A record landing between the check and
// the write bumps the generation before it invalidates, so the write is either
// removed by that invalidation or by the second check here.
func (s *PricingService) setInCache(ctx context.Context, key string, result *domain.CheapestStoreResult, generation uint64) error {
	if s.cache == nil || s.generation.Load() != generation {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		return err
	}

	if s.generation.Load() != generation {
		return s.cache.Delete(ctx, key)
	}
	return nil
}
