// Package ratelimit implements the per-call delay applied before every
// outbound Marketo request. It is a blunt throttle: each call waits the
// configured interval regardless of server load, and concurrent callers are
// not coordinated.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for call throttling.
var (
	throttleDelaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketo_throttle_delays_total",
		Help: "Total number of delays applied before outbound calls",
	})

	throttleDelaySeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketo_throttle_delay_seconds_total",
		Help: "Total time spent suspended by the call throttle",
	})
)

// Delay suspends the caller for d. It returns early with the context error
// if ctx is done first. A non-positive d returns immediately.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Throttle applies a fixed delay before each call.
type Throttle struct {
	// Interval is the wait before every call. Zero disables throttling.
	Interval time.Duration
}

// FromSeconds builds a Throttle from an interval in seconds.
func FromSeconds(seconds float64) Throttle {
	if seconds <= 0 {
		return Throttle{}
	}
	return Throttle{Interval: time.Duration(seconds * float64(time.Second))}
}

// Enabled reports whether Wait suspends.
func (t Throttle) Enabled() bool {
	return t.Interval > 0
}

// Wait suspends for the configured interval.
func (t Throttle) Wait(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}

	throttleDelaysTotal.Inc()
	start := time.Now()
	err := Delay(ctx, t.Interval)
	throttleDelaySeconds.Add(time.Since(start).Seconds())
	return err
}
