package patterns

import (
	"context"
	"time"
)

// WithTimeout derives a context with timeout for fail-fast behavior
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

// DefaultTimeout is the default timeout for HTTP requests
const DefaultTimeout = 3 * time.Second

// SlowServiceTimeout is a longer timeout for services that might be slow,
// such as the payment gateway
const SlowServiceTimeout = 10 * time.Second
