package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type RequestContext struct {
	// Unique key for each request for tracing purposes. Taken from the
	// Request-Id or X-Request-Id header, generated otherwise.
	//
	// Example: 6f1c2a4e-0b7d-4d43-9a7e-3c4f1d2b9e10
	RequestID string
	// Origin of the merchant page calling the endpoint.
	//
	// Example: https://shop.example
	Origin string
	// Information about the client making this request
	UserAgent string
}

func requestContextFromRequest(r *http.Request) *RequestContext {
	requestID := strings.TrimSpace(r.Header.Get("Request-Id"))
	if requestID == "" {
		requestID = strings.TrimSpace(r.Header.Get("X-Request-Id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &RequestContext{
		RequestID: requestID,
		Origin:    strings.TrimSpace(r.Header.Get("Origin")),
		UserAgent: strings.TrimSpace(r.Header.Get("User-Agent")),
	}
}

type requestContextKey struct{}

func contextWithRequestContext(ctx context.Context, requestCtx *RequestContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey{}, requestCtx)
}

// RequestContextFromContext extracts the HTTP request metadata previously stored in the context.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	if requestCtx, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return requestCtx
	}
	return nil
}
