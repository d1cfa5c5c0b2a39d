package pagination

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// OffsetPageSize is the maxReturn used for offset-paged asset reads.
const OffsetPageSize = 200

// DefaultOffsets are the five fixed offsets fetched by asset list reads.
var DefaultOffsets = []int{0, 200, 400, 600, 800}

// OffsetFunc fetches one offset page.
type OffsetFunc[T any] func(ctx context.Context, offset int) ([]T, error)

// FanOut fetches every offset concurrently, one task per offset, and merges
// the successful pages sorted with cmp. A failed branch contributes no
// records; the result then has Success false and Err joining the branch
// errors, while the records of the other branches are still returned.
func FanOut[T any](ctx context.Context, offsets []int, fetch OffsetFunc[T], cmp func(a, b T) int) AggregatedResult[T] {
	start := time.Now()
	logger := log.With().Str("component", "pagination").Logger()

	p := pool.NewWithResults[[]T]().WithContext(ctx)
	for _, offset := range offsets {
		p.Go(func(ctx context.Context) ([]T, error) {
			records, err := fetch(ctx, offset)
			if err != nil {
				logger.Warn().
					Err(err).
					Int("offset", offset).
					Msg("Offset page fetch failed")
				return nil, fmt.Errorf("offset %d: %w", offset, err)
			}
			pagesTotal.WithLabelValues("offset").Inc()
			return records, nil
		})
	}

	pages, err := p.Wait()

	merged := []T{}
	for _, page := range pages {
		merged = append(merged, page...)
	}
	if cmp != nil {
		slices.SortStableFunc(merged, cmp)
	}

	result := AggregatedResult[T]{Success: err == nil, Result: merged, Err: err}
	if err != nil {
		partialFailuresTotal.WithLabelValues("offset").Inc()
	}

	logger.Info().
		Int("offsets", len(offsets)).
		Int("pages", len(pages)).
		Int("records", len(merged)).
		Bool("success", result.Success).
		Dur("duration", time.Since(start)).
		Msg("Fan-out fetch complete")

	return result
}

// CompareNameFold orders records by case-insensitive name, then by ID, so
// the order is reproducible regardless of arrival order.
func CompareNameFold[T any](name func(T) string, id func(T) int64) func(a, b T) int {
	return func(a, b T) int {
		if c := strings.Compare(strings.ToLower(name(a)), strings.ToLower(name(b))); c != 0 {
			return c
		}
		switch ia, ib := id(a), id(b); {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		default:
			return 0
		}
	}
}
