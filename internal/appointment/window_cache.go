package appointment

import (
	"context"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

type windowKey struct {
	providerID uuid.UUID
	date       civil.Date
}

// WindowCache keeps availability window lookups in memory. Windows never
// change once written, so only hits are cached and a provider delete purges
// everything.
type WindowCache struct {
	repo   Repository
	cache  *lru.Cache[windowKey, AvailabilityWindow]
	logger *zap.Logger
}

func NewWindowCache(repo Repository, size int, logger *zap.Logger) (*WindowCache, error) {
	cache, err := lru.New[windowKey, AvailabilityWindow](size)
	if err != nil {
		return nil, err
	}
	return &WindowCache{
		repo:   repo,
		cache:  cache,
		logger: logger.Named("window_cache"),
	}, nil
}

func (c *WindowCache) Find(ctx context.Context, providerID uuid.UUID, date civil.Date) (*AvailabilityWindow, error) {
	key := windowKey{providerID: providerID, date: date}
	if w, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit", zap.Stringer("provider_id", providerID), zap.Stringer("date", date))
		return &w, nil
	}

	w, err := c.repo.FindAvailabilityWindow(ctx, providerID, date)
	if err != nil || w == nil {
		return w, err
	}

	c.cache.Add(key, *w)
	return w, nil
}

func (c *WindowCache) Purge() {
	c.cache.Purge()
}
