package patterns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrRejected marks a failure caused by the caller's request (4xx), which
// must not count against the downstream service's health
var ErrRejected = errors.New("request rejected by downstream service")

// CircuitBreakerWrapper wraps gobreaker with metrics
type CircuitBreakerWrapper struct {
	*gobreaker.CircuitBreaker
	name    string
	service string
}

// NewCircuitBreaker creates a new circuit breaker with Prometheus metrics
func NewCircuitBreaker(name, service string) *CircuitBreakerWrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // Max requests allowed in half-open state
		Interval:    15 * time.Second, // Window to track failures
		Timeout:     30 * time.Second, // Time to wait before half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			// Trip if 60% or more requests fail and at least 3 requests have been made
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(service, cbName).Set(stateValue(to))

			log.WithFields(log.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	})

	wrapper := &CircuitBreakerWrapper{
		CircuitBreaker: cb,
		name:           name,
		service:        service,
	}

	// Initialize the metric with the current state (closed by default)
	metrics.CircuitBreakerState.WithLabelValues(service, name).Set(0)

	return wrapper
}

// Execute runs a function through the circuit breaker with metrics
func (cb *CircuitBreakerWrapper) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.CircuitBreaker.Execute(fn)

	if err != nil && !errors.Is(err, ErrRejected) {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.service, cb.name).Inc()
	}

	return result, err
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreakerWrapper) GetState() string {
	return cb.State().String()
}

// GetStateValue returns numeric value for the state (0=closed, 1=open, 2=half-open)
func (cb *CircuitBreakerWrapper) GetStateValue() int {
	return int(stateValue(cb.State()))
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return -1
	}
}

// FormatError formats an error message with circuit breaker info
func FormatError(circuitName string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("circuit breaker %s is open (service unavailable): %w", circuitName, err)
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuit breaker %s: too many requests in half-open state: %w", circuitName, err)
	}
	return err
}

// Guard protects one downstream dependency with a bulkhead and a circuit breaker
type Guard struct {
	Circuit  *CircuitBreakerWrapper
	Bulkhead *Bulkhead
	name     string
}

// NewGuard creates the breaker and bulkhead for a named dependency
func NewGuard(name, service string, concurrency int) *Guard {
	return &Guard{
		Circuit:  NewCircuitBreaker(name, service),
		Bulkhead: NewBulkhead(concurrency, name, service),
		name:     name,
	}
}

// Do runs fn inside the bulkhead, then through the circuit breaker
func (g *Guard) Do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	var result interface{}
	err := g.Bulkhead.Execute(ctx, func() error {
		res, cbErr := g.Circuit.Execute(fn)
		result = res
		return FormatError(g.name, cbErr)
	})
	return result, err
}

// Name returns the dependency name
func (g *Guard) Name() string {
	return g.name
}

// CircuitStatus describes a guard's breaker for status endpoints
type CircuitStatus struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	Value            int    `json:"value"`
	BulkheadInUse    int    `json:"bulkhead_in_use"`
	BulkheadCapacity int    `json:"bulkhead_capacity"`
}

// Status reports the current breaker state
func (g *Guard) Status() CircuitStatus {
	return CircuitStatus{
		Name:             g.name,
		State:            g.Circuit.GetState(),
		Value:            g.Circuit.GetStateValue(),
		BulkheadInUse:    g.Bulkhead.InUse(),
		BulkheadCapacity: g.Bulkhead.Capacity(),
	}
}
