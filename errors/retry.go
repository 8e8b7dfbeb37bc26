package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig defines retry behavior configuration
type RetryConfig struct {
	MaxRetries      int           `json:"max_retries"`
	BaseDelay       time.Duration `json:"base_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	BackoffFactor   float64       `json:"backoff_factor"`
	Jitter          bool          `json:"jitter"`
	RetryableErrors []ErrorType   `json:"retryable_errors"`
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorType{
			ErrTypeDatabase,
			ErrTypeTimeout,
			ErrTypeCache,
		},
	}
}

// DatabaseRetryConfig returns retry config optimized for database operations
func DatabaseRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		BaseDelay:     50 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 1.5,
		Jitter:        true,
		RetryableErrors: []ErrorType{
			ErrTypeDatabase,
			ErrTypeTimeout,
		},
	}
}

// OrderAssignmentRetryConfig returns retry config for structural writes
// where the order index was assigned implicitly. A concurrent sibling
// insert can claim the same index; the losing writer re-reads the max
// and tries again, so Conflict is retryable here and only here.
func OrderAssignmentRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		BaseDelay:     20 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorType{
			ErrTypeConflict,
			ErrTypeDatabase,
			ErrTypeTimeout,
		},
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// RetryableOperationWithResult represents an operation that returns a result and can be retried
type RetryableOperationWithResult[T any] func() (T, error)

// Retryer handles retry logic with exponential backoff
type Retryer struct {
	config *RetryConfig
}

// NewRetryer creates a new retryer with the given configuration
func NewRetryer(config *RetryConfig) *Retryer {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retryer{config: config}
}

// Execute executes an operation with retry logic
func (r *Retryer) Execute(ctx context.Context, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !r.shouldRetry(ctx, err, attempt) {
			return lastErr
		}
	}

	return r.wrapFinalError(lastErr)
}

// ExecuteWithResult executes an operation that returns a result with retry logic
func ExecuteWithResult[T any](ctx context.Context, config *RetryConfig, operation RetryableOperationWithResult[T]) (T, error) {
	retryer := NewRetryer(config)
	var result T
	var lastErr error

	for attempt := 0; attempt <= retryer.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryer.calculateDelay(attempt)

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}

		res, err := operation()
		if err == nil {
			return res, nil
		}

		result = res
		lastErr = err

		if !retryer.shouldRetry(ctx, err, attempt) {
			return result, lastErr
		}
	}

	return result, retryer.wrapFinalError(lastErr)
}

// calculateDelay calculates the delay for the given attempt using exponential backoff
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	// Jitter prevents thundering herd
	if r.config.Jitter {
		jitter := delay * 0.1 * (rand.Float64()*2 - 1)
		delay += jitter
	}

	return time.Duration(delay)
}

// shouldRetry determines if an operation should be retried
func (r *Retryer) shouldRetry(ctx context.Context, err error, attempt int) bool {
	if ctx.Err() != nil {
		return false
	}

	if attempt >= r.config.MaxRetries {
		return false
	}

	return r.isRetryableError(err)
}

// isRetryableError checks if an error should be retried based on configuration.
// The configured type list takes precedence over the error's own retryable
// flag so that a config can opt specific types (e.g. Conflict) into retry.
func (r *Retryer) isRetryableError(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		for _, retryableType := range r.config.RetryableErrors {
			if appErr.Type == retryableType {
				return true
			}
		}
		return false
	}

	return IsRetryable(err)
}

// wrapFinalError wraps the final error with retry information
func (r *Retryer) wrapFinalError(err error) error {
	if appErr, ok := AsAppError(err); ok {
		appErr.Details = fmt.Sprintf("Failed after %d retries", r.config.MaxRetries)
		return appErr
	}

	return WrapError(err, ErrTypeInternal, ErrCodeProcessingError,
		fmt.Sprintf("Operation failed after %d retries", r.config.MaxRetries))
}

// CircuitBreakerConfig defines circuit breaker behavior
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"`
	ResetTimeout     time.Duration `json:"reset_timeout"`
	MaxRequests      int           `json:"max_requests"`
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

// CircuitBreaker implements the circuit breaker pattern. The tree cache
// uses one around the shared cache backend so a dead backend is skipped
// immediately instead of being probed on every read. A single instance is
// shared by every in-flight request, so the state transitions are guarded
// by a mutex.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu           sync.Mutex
	state        CircuitBreakerState
	failures     int
	lastFailTime time.Time
	requests     int
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = &CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
			MaxRequests:      3,
		}
	}

	return &CircuitBreaker{
		config: config,
		state:  CircuitBreakerClosed,
	}
}

// Execute executes an operation through the circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, operation RetryableOperation) error {
	if !cb.canExecute() {
		return NewCacheBackendError(
			ErrCodeCacheUnavailable,
			"circuit breaker is open, operation not allowed",
			nil,
		)
	}

	err := operation()
	cb.recordResult(err)
	return err
}

// canExecute checks if the operation can be executed based on circuit breaker state
func (cb *CircuitBreaker) canExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		return true
	case CircuitBreakerOpen:
		if time.Since(cb.lastFailTime) > cb.config.ResetTimeout {
			cb.state = CircuitBreakerHalfOpen
			cb.requests = 0
			return true
		}
		return false
	case CircuitBreakerHalfOpen:
		return cb.requests < cb.config.MaxRequests
	default:
		return false
	}
}

// recordResult records the result of an operation
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		if err != nil {
			cb.failures++
			if cb.failures >= cb.config.FailureThreshold {
				cb.state = CircuitBreakerOpen
				cb.lastFailTime = time.Now()
			}
		} else {
			cb.failures = 0
		}
	case CircuitBreakerHalfOpen:
		cb.requests++
		if err != nil {
			cb.state = CircuitBreakerOpen
			cb.lastFailTime = time.Now()
			cb.failures = cb.config.FailureThreshold
		} else if cb.requests >= cb.config.MaxRequests {
			cb.state = CircuitBreakerClosed
			cb.failures = 0
		}
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
