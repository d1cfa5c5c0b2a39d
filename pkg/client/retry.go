package client

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketo_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketo_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketo_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the backoff shape for one error class.
type RetryConfig struct {
	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// RetryConfigForErrorClass returns the retry configuration for an error
// class, scaled from the given base interval.
func RetryConfigForErrorClass(errorClass ErrorClass, base time.Duration) RetryConfig {
	switch errorClass {
	case ErrorClassServer:
		return RetryConfig{
			InitialBackoff:    base,
			MaxBackoff:        10 * base,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassRateLimit:
		// Marketo counts calls over a sliding 20s window
		return RetryConfig{
			InitialBackoff:    5 * base,
			MaxBackoff:        60 * base,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassNetwork:
		return RetryConfig{
			InitialBackoff:    2 * base,
			MaxBackoff:        30 * base,
			BackoffMultiplier: 2.0,
		}
	default:
		return RetryConfig{
			InitialBackoff:    base,
			MaxBackoff:        30 * base,
			BackoffMultiplier: 2.0,
		}
	}
}

func retryConfigs(base time.Duration) map[ErrorClass]RetryConfig {
	classes := []ErrorClass{ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork}
	configs := make(map[ErrorClass]RetryConfig, len(classes))
	for _, class := range classes {
		configs[class] = RetryConfigForErrorClass(class, base)
	}
	return configs
}

// classBackOff picks the exponential schedule of the most recent error class.
// Each class keeps its own progression so a rate-limit retry after a network
// retry starts from the rate-limit initial interval.
type classBackOff struct {
	configs  map[ErrorClass]RetryConfig
	class    func() ErrorClass
	backoffs map[ErrorClass]*backoff.ExponentialBackOff
}

// NextBackOff implements backoff.BackOff.
func (b *classBackOff) NextBackOff() time.Duration {
	if b.backoffs == nil {
		b.backoffs = make(map[ErrorClass]*backoff.ExponentialBackOff)
	}

	class := b.class()
	eb, ok := b.backoffs[class]
	if !ok {
		cfg, found := b.configs[class]
		if !found {
			cfg = RetryConfigForErrorClass(class, time.Second)
		}
		eb = backoff.NewExponentialBackOff()
		eb.InitialInterval = cfg.InitialBackoff
		eb.MaxInterval = cfg.MaxBackoff
		eb.Multiplier = cfg.BackoffMultiplier
		eb.RandomizationFactor = 0.2
		eb.Reset()
		b.backoffs[class] = eb
	}
	return eb.NextBackOff()
}

// Reset implements backoff.BackOff.
func (b *classBackOff) Reset() {
	b.backoffs = nil
}

func recordRetry(class ErrorClass, wait time.Duration) {
	retriesTotal.WithLabelValues(string(class)).Inc()
	retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())
}
