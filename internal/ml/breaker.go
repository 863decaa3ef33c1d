package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-predictor/internal/features"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrModelUnavailable is returned while the breaker is open.
var ErrModelUnavailable = errors.New("model temporarily unavailable")

// BreakerOptions configures NewBreakerModel.
type BreakerOptions struct {
	Failures uint32        // consecutive failures that open the breaker
	Cooldown time.Duration // time spent open before a trial call
}

// BreakerModel stops calling a failing model for a cooldown period and
// returns ErrModelUnavailable meanwhile.
type BreakerModel struct {
	inner Model
	cb    *gobreaker.CircuitBreaker[float64]
}

// NewBreakerModel wraps inner. A zero Failures returns inner unchanged.
func NewBreakerModel(inner Model, opts BreakerOptions) Model {
	if opts.Failures == 0 {
		return inner
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.Failures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations are not model failures
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ev := log.Info()
			if to == gobreaker.StateOpen {
				ev = log.Warn()
			}
			ev.Str("model", name).Str("from", from.String()).Str("to", to.String()).Msg("model breaker state changed")
		},
	}

	return &BreakerModel{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[float64](settings),
	}
}

func (b *BreakerModel) Name() string { return b.inner.Name() }

// Columns forwards to the wrapped model when it knows its columns.
func (b *BreakerModel) Columns() []string {
	if ca, ok := b.inner.(ColumnAware); ok {
		return ca.Columns()
	}
	return nil
}

// State reports the breaker state for health output.
func (b *BreakerModel) State() string {
	return b.cb.State().String()
}

func (b *BreakerModel) Predict(ctx context.Context, row features.AlignedRow) (float64, error) {
	v, err := b.cb.Execute(func() (float64, error) {
		return b.inner.Predict(ctx, row)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return v, err
}
