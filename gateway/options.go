package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger         *zap.Logger
	payPalClient   *http.Client
	applePayClient *http.Client
	breaker        BreakerSettings
	middleware     []Middleware
	timeout        time.Duration
}

// BreakerSettings tunes the circuit breaker guarding PayPal API calls.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type Middleware func(http.HandlerFunc) http.HandlerFunc

func applyMiddleware(h http.HandlerFunc, middleware ...Middleware) http.HandlerFunc {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

// Option customizes the handler behavior.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPayPalClient overrides the HTTP client used for PayPal API calls.
func WithPayPalClient(client *http.Client) Option {
	return func(o *options) {
		o.payPalClient = client
	}
}

// WithApplePayClient overrides the HTTP client used for merchant validation.
// The client must present the merchant identity certificate itself; the
// configured certificate path is then ignored.
func WithApplePayClient(client *http.Client) Option {
	return func(o *options) {
		o.applePayClient = client
	}
}

// WithBreakerSettings tunes the PayPal circuit breaker.
func WithBreakerSettings(settings BreakerSettings) Option {
	return func(o *options) {
		o.breaker = settings
	}
}

// WithUpstreamTimeout bounds every outbound provider call.
func WithUpstreamTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("gateway: upstream timeout must be positive")
	}
	return func(o *options) {
		o.timeout = d
	}
}

// WithMiddleware appends custom middleware in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) {
		for _, m := range mw {
			if m == nil {
				continue
			}
			o.middleware = append(o.middleware, m)
		}
	}
}

func defaultOptions() options {
	return options{
		logger: zap.NewNop(),
		breaker: BreakerSettings{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		timeout: 30 * time.Second,
	}
}
