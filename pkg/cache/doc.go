// Package cache keeps custom object descriptions so repeated queries against
// the same object do not repeat describe calls.
//
// Entries never expire and are never refreshed: correctness relies on a
// custom object's schema not changing while the cache is alive. Long-lived
// processes that deploy schema changes call Invalidate for the object.
//
// # Basic Usage
//
//	descriptions := cache.New(cache.NewMemoryStore())
//
//	desc, err := descriptions.GetOrFetch(ctx, "car_c", func(ctx context.Context, name string) (*cache.Description, error) {
//		return describeFromAPI(ctx, name)
//	})
//
// Concurrent misses for one name share a single describe call.
//
// # Stores
//
// MemoryStore is scoped to the process. RedisStore shares descriptions
// between processes under the key "marketo:describe:<name>" with no TTL:
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	descriptions := cache.New(cache.NewRedisStore(redisClient))
//
// # Metrics
//
//   - marketo_describe_cache_hits_total{layer} - Cache hits by store
//   - marketo_describe_cache_misses_total - Cache misses
//   - marketo_describe_fetches_total - Describe calls issued on a miss
//   - marketo_describe_cache_errors_total{operation} - Store errors
package cache
