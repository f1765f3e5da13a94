package sparql

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures BreakerExecutor.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
	Logger           *slog.Logger
}

// BreakerExecutor fails fast while the wrapped endpoint keeps failing. It never
// retries a query itself.
type BreakerExecutor struct {
	next Executor
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerExecutor wraps next with a circuit breaker.
func NewBreakerExecutor(next Executor, s BreakerSettings) *BreakerExecutor {
	logger := s.Logger
	if logger == nil {
		logger = discardLogger
	}
	ratio := s.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("sparql circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isBreakerSuccess,
	}
	return &BreakerExecutor{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// Execute implements Executor.
func (b *BreakerExecutor) Execute(ctx context.Context, query string) (*Results, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Execute(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Results), nil
}

// isBreakerSuccess counts only server-side and transport failures against the
// endpoint. Client errors and cancellations say nothing about its health.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status < 500
	}
	return false
}
