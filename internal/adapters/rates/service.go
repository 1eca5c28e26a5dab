package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/pkg/observability"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// How long a fetched rate stays valid before the source is consulted again
	rateTTL = 5 * time.Minute

	// How often expired entries are purged from the cache
	purgeInterval = 10 * time.Minute
)

// Service resolves exchange rates through a RateSource, memoizing results so
// bursts of conversions do not hammer the source.
type Service struct {
	source RateSource
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewService creates a rate service around the given source
func NewService(source RateSource, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		cache:  gocache.New(rateTTL, purgeInterval),
		logger: logger,
	}
}

// GetRate returns the exchange rate from one currency to another.
// Identical currencies resolve to 1 without touching the source or the cache.
func (s *Service) GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := pairKey(from, to)

	if cached, ok := s.cache.Get(key); ok {
		observability.RecordRateLookup(key, "cache")
		return cached.(decimal.Decimal), nil
	}

	rate, err := s.source.Rate(ctx, from, to)
	if err != nil {
		s.logger.Warn("Rate lookup failed",
			zap.String("pair", key),
			zap.Error(err))
		return decimal.Decimal{}, fmt.Errorf("lookup rate %s: %w", key, err)
	}

	s.cache.Set(key, rate, gocache.DefaultExpiration)
	observability.RecordRateLookup(key, "source")

	s.logger.Debug("Rate fetched from source",
		zap.String("pair", key),
		zap.String("rate", rate.String()))

	return rate, nil
}
