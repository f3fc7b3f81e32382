// Package gateway serves the backend endpoints the payment request flows
// call: Apple Pay merchant validation, PayPal checkout creation and the PayPal
// return bridge.
package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler wires the provider proxy routes onto net/http's ServeMux.
type Handler struct {
	cfg      Config
	opts     options
	mux      *http.ServeMux
	applePay *applePayValidator
	payPal   *payPalClient
	bridge   *bridgeRenderer
}

// NewHandler builds a [Handler] for the given configuration.
func NewHandler(cfg Config, opts ...Option) *Handler {
	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	cfg = cfg.withDefaults()
	h := &Handler{
		cfg:      cfg,
		opts:     o,
		mux:      http.NewServeMux(),
		applePay: newApplePayValidator(cfg.ApplePay, o),
		payPal:   newPayPalClient(cfg.PayPal, o),
		bridge:   newBridgeRenderer(cfg.PostMessageOrigin),
	}
	middleware := append([]Middleware{h.logRequests}, o.middleware...)
	h.registerRoutes(middleware...)
	return h
}

// ServeHTTP satisfies http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestCtx := requestContextFromRequest(r)
	ctx := contextWithRequestContext(r.Context(), requestCtx)
	w.Header().Set("Request-Id", requestCtx.RequestID)
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) registerRoutes(middleware ...Middleware) {
	h.mux.HandleFunc("POST /applepay/validate", applyMiddleware(h.handleApplePayValidate, middleware...))
	h.mux.HandleFunc("POST /paypal/checkout", applyMiddleware(h.handlePayPalCheckout, middleware...))
	h.mux.HandleFunc("GET /paypal/return", applyMiddleware(h.handlePayPalReturn, middleware...))
}

// logRequests records one line per request.
func (h *Handler) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		}
		if requestCtx := RequestContextFromContext(r.Context()); requestCtx != nil {
			fields = append(fields, zap.String("request_id", requestCtx.RequestID))
		}
		h.opts.logger.Info("gateway request", fields...)
	}
}

func (h *Handler) logger(r *http.Request) *zap.Logger {
	if requestCtx := RequestContextFromContext(r.Context()); requestCtx != nil {
		return h.opts.logger.With(zap.String("request_id", requestCtx.RequestID))
	}
	return h.opts.logger
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before forwarding to the real writer.
func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
