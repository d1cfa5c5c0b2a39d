package pagination

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxFollowUpPages is the most follow-up page requests issued per batch
// after the first page.
const MaxFollowUpPages = 10

// Prometheus metrics for aggregated reads.
var (
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketo_batches_total",
		Help: "Total number of ID batches fetched",
	})

	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketo_pages_total",
		Help: "Total number of pages fetched by pagination mode",
	}, []string{"mode"}) // "token", "offset"

	pageCeilingHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketo_page_ceiling_hits_total",
		Help: "Total number of batches truncated by the follow-up page ceiling",
	})

	partialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketo_partial_failures_total",
		Help: "Total number of aggregated reads that ended with success=false",
	}, []string{"mode"})
)

// Page is one server response of a token-paged read.
type Page[T any] struct {
	Records       []T
	NextPageToken string
	MoreResult    bool
}

// AggregatedResult is the merged output of a multi-request read. Result
// holds every record collected before a failure; Success is false iff an
// error occurred, and Err carries it.
type AggregatedResult[T any] struct {
	Success bool
	Result  []T
	Err     error
}

// PageFunc fetches one page for a batch. An empty token requests the first
// page of the batch.
type PageFunc[T any] func(ctx context.Context, token string, batch []string, filter string) (Page[T], error)

// FetchBatched fetches every page of every batch of ids and merges the
// records in batch order, then page order. Batches run sequentially. The
// first error stops iteration; records collected so far are kept.
func FetchBatched[T any](ctx context.Context, ids IDSet, filter string, fetch PageFunc[T]) AggregatedResult[T] {
	start := time.Now()
	batches := ids.Batches(MaxBatchSize)

	logger := log.With().
		Str("component", "pagination").
		Str("operation_id", uuid.NewString()).
		Logger()

	logger.Debug().
		Int("ids", ids.Len()).
		Int("batches", len(batches)).
		Str("filter", filter).
		Msg("Starting batched fetch")

	result := AggregatedResult[T]{Success: true, Result: []T{}}
	requests := 0

	for i, batch := range batches {
		batchesTotal.Inc()

		page, err := fetch(ctx, "", batch, filter)
		requests++
		if err != nil {
			return failBatched(logger, result, err, i, requests)
		}
		pagesTotal.WithLabelValues("token").Inc()
		result.Result = append(result.Result, page.Records...)

		followUps := 0
		for page.MoreResult && followUps < MaxFollowUpPages {
			if page.NextPageToken == "" {
				logger.Warn().Int("batch", i).Msg("moreResult without nextPageToken, stopping batch")
				break
			}

			page, err = fetch(ctx, page.NextPageToken, batch, filter)
			requests++
			if err != nil {
				return failBatched(logger, result, err, i, requests)
			}
			pagesTotal.WithLabelValues("token").Inc()
			result.Result = append(result.Result, page.Records...)
			followUps++
		}

		if page.MoreResult && followUps == MaxFollowUpPages {
			pageCeilingHitsTotal.Inc()
			logger.Warn().
				Int("batch", i).
				Int("batch_size", len(batch)).
				Int("follow_up_pages", followUps).
				Msg("Page ceiling reached, remaining results for batch dropped")
		}
	}

	logger.Info().
		Int("batches", len(batches)).
		Int("requests", requests).
		Int("records", len(result.Result)).
		Dur("duration", time.Since(start)).
		Msg("Batched fetch complete")

	return result
}

func failBatched[T any](logger zerolog.Logger, result AggregatedResult[T], err error, batch, requests int) AggregatedResult[T] {
	partialFailuresTotal.WithLabelValues("token").Inc()
	logger.Warn().
		Err(err).
		Int("batch", batch).
		Int("requests", requests).
		Int("records", len(result.Result)).
		Msg("Batched fetch failed - returning partial results")

	result.Success = false
	result.Err = err
	return result
}
