package paymentrequest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type config struct {
	native       NativeFactory
	applePay     ApplePayRuntime
	window       Window
	validator    MerchantValidator
	domainName   string
	httpClient   *http.Client
	pollInterval time.Duration
	backends     map[string]Backend
	logger       *zap.Logger
	newID        func() string
}

// Option customizes a [Request].
type Option func(*config)

// WithNative supplies the platform payment request implementation.
func WithNative(factory NativeFactory) Option {
	return func(cfg *config) {
		cfg.native = factory
	}
}

// WithApplePay enables the Apple Pay backend on top of the given runtime.
func WithApplePay(runtime ApplePayRuntime) Option {
	return func(cfg *config) {
		cfg.applePay = runtime
	}
}

// WithWindow supplies the window used by the PayPal popup flow.
func WithWindow(window Window) Option {
	return func(cfg *config) {
		cfg.window = window
	}
}

// WithMerchantValidator overrides the Apple Pay merchant validator. By
// default an [HTTPMerchantValidator] posts to the method's
// merchantValidationURL.
func WithMerchantValidator(v MerchantValidator) Option {
	return func(cfg *config) {
		cfg.validator = v
	}
}

// WithDomainName sets the domain name sent during merchant validation.
func WithDomainName(domain string) Option {
	return func(cfg *config) {
		cfg.domainName = domain
	}
}

// WithHTTPClient sets the client used by the default merchant validator.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = client
	}
}

// WithPollInterval sets how often the PayPal popup is checked for closure.
func WithPollInterval(d time.Duration) Option {
	if d <= 0 {
		panic("paymentrequest: poll interval must be positive")
	}
	return func(cfg *config) {
		cfg.pollInterval = d
	}
}

// WithBackend registers a backend for a payment method identifier. It
// replaces any built-in backend for the same identifier.
func WithBackend(method string, backend Backend) Option {
	return func(cfg *config) {
		if cfg.backends == nil {
			cfg.backends = make(map[string]Backend)
		}
		cfg.backends[method] = backend
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// withIDGenerator provides deterministic ids in tests.
func withIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		cfg.newID = fn
	}
}

func defaultConfig() config {
	return config{
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
		newID:        uuid.NewString,
	}
}
