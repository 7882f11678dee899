package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned when the breaker is open and rejects the call.
var ErrOpen = gobreaker.ErrOpenState

// ErrTooManyRequests is returned in half-open state once MaxRequests is reached.
var ErrTooManyRequests = gobreaker.ErrTooManyRequests

// Config holds configuration for a circuit breaker.
type Config struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of calls allowed in the half-open state.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of calls has failed.
	FailureRatio float64

	// MinRequests is the minimum number of calls before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultConfig returns sensible defaults for a circuit breaker.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Metrics holds the breaker gauges. One instance is shared by every breaker
// registered against the same registry.
type Metrics struct {
	state    *prometheus.GaugeVec
	rejected *prometheus.CounterVec
}

// NewMetrics creates breaker metrics and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		}, []string{"name"}),
	}
	if reg != nil {
		reg.MustRegister(m.state, m.rejected)
	}
	return m
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Breaker guards calls returning T.
type Breaker[T any] struct {
	cb      *gobreaker.CircuitBreaker[T]
	metrics *Metrics
	logger  *slog.Logger
	name    string
}

// New creates a breaker. metrics may be nil.
func New[T any](cfg Config, metrics *Metrics, logger *slog.Logger) *Breaker[T] {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// Cancellation by the caller says nothing about the dependency.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.state.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	metrics.state.WithLabelValues(cfg.Name).Set(0)

	return &Breaker[T]{
		cb:      gobreaker.NewCircuitBreaker[T](settings),
		metrics: metrics,
		logger:  logger,
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests) {
		b.metrics.rejected.WithLabelValues(b.name).Inc()
	}
	return v, err
}

// State returns the current state of the breaker.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker[T]) Name() string {
	return b.name
}
