package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// payPalPayment is the subset of a PayPal payment resource the gateway reads.
type payPalPayment struct {
	ID    string       `json:"id"`
	Links []payPalLink `json:"links"`
}

type payPalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// payPalAPIError is returned by PayPal for rejected calls.
type payPalAPIError struct {
	Status  int    `json:"-"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *payPalAPIError) Error() string {
	return fmt.Sprintf("paypal: %s: %s", e.Name, e.Message)
}

// approvalURL returns the link the payer is redirected to.
func (p payPalPayment) approvalURL() string {
	for _, link := range p.Links {
		if link.Rel == "approval_url" {
			return link.Href
		}
	}
	if len(p.Links) > 1 {
		return p.Links[1].Href
	}
	return ""
}

// payPalClient calls the PayPal REST API with client credentials.
type payPalClient struct {
	cfg     PayPalConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func newPayPalClient(cfg PayPalConfig, o options) *payPalClient {
	base := o.payPalClient
	if base == nil {
		base = &http.Client{}
	}
	failures := o.breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	return &payPalClient{
		cfg:     cfg,
		client:  &http.Client{Transport: otelhttp.NewTransport(base.Transport), Timeout: base.Timeout},
		timeout: o.timeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "paypal",
			Timeout: o.breaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// Declined or malformed payments are the payer's problem, not an outage.
			IsSuccessful: func(err error) bool {
				var apiErr *payPalAPIError
				if errors.As(err, &apiErr) {
					return apiErr.Status < http.StatusInternalServerError
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				o.logger.Warn("circuit breaker state changed", zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
			},
		}),
	}
}

// CreatePayment posts the transaction payload to PayPal.
func (c *payPalClient) CreatePayment(ctx context.Context, payload string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/payments/payment", strings.NewReader(payload))
}

// GetPayment fetches a payment by id.
func (c *payPalClient) GetPayment(ctx context.Context, paymentID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/payments/payment/"+url.PathEscape(paymentID), nil)
}

func (c *payPalClient) do(ctx context.Context, method, target string, body io.Reader) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, fmt.Errorf("paypal: build request: %w", err)
		}
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("paypal: send request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("paypal: read response: %w", err)
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			apiErr := &payPalAPIError{Status: resp.StatusCode}
			if json.Unmarshal(raw, apiErr) != nil || apiErr.Name == "" {
				apiErr.Name = "UNEXPECTED_STATUS"
				apiErr.Message = resp.Status
			}
			return nil, apiErr
		}
		if !json.Valid(raw) {
			return nil, errors.New("paypal: response is not valid JSON")
		}
		return json.RawMessage(raw), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewServiceUnavailableError("paypal is temporarily unavailable")
		}
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// bridgeError is posted to the opener when the checkout could not proceed.
type bridgeError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func toBridgeError(err error) bridgeError {
	var apiErr *payPalAPIError
	if errors.As(err, &apiErr) {
		return bridgeError{Error: apiErr.Name, ErrorDescription: apiErr.Message}
	}
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return bridgeError{Error: strings.ToUpper(string(httpErr.Code)), ErrorDescription: httpErr.Message}
	}
	return bridgeError{Error: "INTERNAL_ERROR", ErrorDescription: err.Error()}
}

func (h *Handler) handlePayPalCheckout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, NewInvalidRequestError("form body required"))
		return
	}
	payment := r.PostForm.Get("payment")
	if payment == "" || !json.Valid([]byte(payment)) {
		writeJSONError(w, NewInvalidRequestError("payment must be a JSON document", WithOffendingParam("payment")))
		return
	}
	result, err := h.payPal.CreatePayment(r.Context(), payment)
	if err != nil {
		h.logger(r).Warn("create paypal payment failed", zap.Error(err))
		h.bridge.render(w, http.StatusOK, toBridgeError(err))
		return
	}
	var created payPalPayment
	if err := json.Unmarshal(result, &created); err != nil || created.approvalURL() == "" {
		h.logger(r).Warn("paypal payment has no approval link", zap.String("payment_id", created.ID))
		h.bridge.render(w, http.StatusOK, bridgeError{Error: "NO_APPROVAL_URL", ErrorDescription: "paypal did not return an approval link"})
		return
	}
	http.Redirect(w, r, created.approvalURL(), http.StatusFound)
}

func (h *Handler) handlePayPalReturn(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("paymentId")
	if paymentID == "" {
		h.bridge.render(w, http.StatusOK, bridgeError{Error: "ABORT"})
		return
	}
	result, err := h.payPal.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.logger(r).Warn("fetch paypal payment failed", zap.String("payment_id", paymentID), zap.Error(err))
		h.bridge.render(w, http.StatusOK, toBridgeError(err))
		return
	}
	h.bridge.render(w, http.StatusOK, result)
}
