package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc performs the describe call for a custom object.
type FetchFunc func(ctx context.Context, name string) (*Description, error)

// DescriptionCache is a get-or-fetch cache of custom object descriptions.
type DescriptionCache struct {
	store  Store
	group  singleflight.Group
	logger zerolog.Logger
}

// New creates a description cache over store. A nil store uses a MemoryStore.
func New(store Store) *DescriptionCache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &DescriptionCache{
		store:  store,
		logger: log.With().Str("component", "describe-cache").Str("layer", store.Layer()).Logger(),
	}
}

// GetOrFetch returns the cached description for name, or calls fetch, stores
// the result and returns it. Fetch errors are not cached. Store errors are
// logged and do not fail the call.
func (c *DescriptionCache) GetOrFetch(ctx context.Context, name string, fetch FetchFunc) (*Description, error) {
	if desc, ok := c.lookup(ctx, name); ok {
		return desc, nil
	}

	// the fetch is shared, so one caller's cancellation must not fail the rest
	fetchCtx := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do(name, func() (any, error) {
		// a flight that finished between lookup and Do already stored it
		if desc, ok := c.lookup(fetchCtx, name); ok {
			return desc, nil
		}

		CacheMisses.Inc()
		DescribeFetches.Inc()
		desc, err := fetch(fetchCtx, name)
		if err != nil {
			return nil, err
		}
		if desc == nil {
			return nil, fmt.Errorf("describe %s: empty description", name)
		}

		if err := c.store.Set(fetchCtx, name, desc); err != nil {
			CacheErrors.WithLabelValues("set").Inc()
			c.logger.Warn().Err(err).Str("object", name).Msg("Failed to cache description")
		}
		return desc, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("object", name).Bool("shared", shared).Msg("Description fetched")
	return v.(*Description), nil
}

// Invalidate drops the cached description for name so the next GetOrFetch
// describes it again.
func (c *DescriptionCache) Invalidate(ctx context.Context, name string) error {
	if err := c.store.Delete(ctx, name); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	c.logger.Info().Str("object", name).Msg("Description invalidated")
	return nil
}

func (c *DescriptionCache) lookup(ctx context.Context, name string) (*Description, bool) {
	desc, err := c.store.Get(ctx, name)
	switch {
	case err == nil:
		CacheHits.WithLabelValues(c.store.Layer()).Inc()
		c.logger.Debug().Str("object", name).Msg("Description cache hit")
		return desc, true
	case errors.Is(err, ErrCacheMiss):
		return nil, false
	default:
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("object", name).Msg("Description cache get error")
		return nil, false
	}
}
