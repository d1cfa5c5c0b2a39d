package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/marketo-client/pkg/cache"
	"github.com/Sternrassler/marketo-client/pkg/client"
	"github.com/Sternrassler/marketo-client/pkg/config"
	"github.com/Sternrassler/marketo-client/pkg/logging"
	"github.com/Sternrassler/marketo-client/pkg/marketo"
	"github.com/Sternrassler/marketo-client/pkg/metrics"
	"github.com/Sternrassler/marketo-client/pkg/pagination"
	"github.com/Sternrassler/marketo-client/pkg/steps"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := cfg.Logging()
	logCfg.Service = "marketo-proxy"
	logging.Setup(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Descriptions are shared through Redis when configured
	var redisClient *redis.Client
	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		store = cache.NewRedisStore(redisClient)
		log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	transport, err := client.New(cfg.Transport())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Marketo transport")
	}
	defer transport.Close()

	mk := marketo.New(transport, marketo.Options{
		Delay:       cfg.CallDelay(),
		PartitionID: cfg.PartitionID,
		Cache:       cache.New(store),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(mk, redisClient),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("base_url", cfg.BaseURL).
		Float64("call_delay_seconds", cfg.CallDelaySeconds).
		Int("partition_id", cfg.PartitionID).
		Msg("Starting Marketo proxy server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}

func newRouter(mk *marketo.Client, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(redisClient))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/activities", activitiesHandler(mk))
	r.Get("/emails", emailsHandler(mk))
	r.Get("/static-lists", staticListsHandler(mk))
	r.Get("/customobjects/{name}/describe", describeHandler(mk))
	r.Post("/leads", createLeadHandler(mk))
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func activitiesHandler(mk *marketo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		since := time.Now().Add(-24 * time.Hour)
		if s := query.Get("since"); s != "" {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "since must be RFC3339", http.StatusBadRequest)
				return
			}
			since = parsed
		}

		var leadIDs []string
		if ids := query.Get("leadIds"); ids != "" {
			leadIDs = strings.Split(ids, ",")
		}

		writeOutcome(w, steps.LeadActivities(r.Context(), mk, pagination.IDs(leadIDs...), query.Get("activityTypeIds"), since))
	}
}

func emailsHandler(mk *marketo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOutcome(w, steps.AllEmails(r.Context(), mk))
	}
}

func staticListsHandler(mk *marketo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOutcome(w, steps.AllStaticLists(r.Context(), mk))
	}
}

func describeHandler(mk *marketo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOutcome(w, steps.DescribeCustomObject(r.Context(), mk, chi.URLParam(r, "name")))
	}
}

func createLeadHandler(mk *marketo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var lead map[string]any
		if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
			http.Error(w, "invalid lead JSON", http.StatusBadRequest)
			return
		}

		partitionID := mk.PartitionID
		if p := r.URL.Query().Get("partitionId"); p != "" {
			id, err := strconv.Atoi(p)
			if err != nil {
				http.Error(w, "partitionId must be an integer", http.StatusBadRequest)
				return
			}
			partitionID = id
		}

		writeOutcome(w, steps.CreateLead(r.Context(), mk, lead, partitionID))
	}
}

// writeOutcome renders an outcome as JSON. Failed steps map to 422 and
// errored steps to 502.
func writeOutcome(w http.ResponseWriter, outcome steps.Outcome) {
	status := http.StatusOK
	switch outcome.Status {
	case steps.StatusFail:
		status = http.StatusUnprocessableEntity
	case steps.StatusError:
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
