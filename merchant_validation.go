package paymentrequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MerchantValidationEvent is raised by Apple Pay when the merchant must prove
// its identity before the sheet can continue.
type MerchantValidationEvent struct {
	ValidationURL string
	MethodName    string
}

// MerchantValidationHandler resolves a merchant validation event to the
// opaque merchant session object returned by Apple.
type MerchantValidationHandler func(ctx context.Context, event MerchantValidationEvent) (json.RawMessage, error)

// MerchantValidationRequest is the body sent to the merchant validation
// endpoint.
type MerchantValidationRequest struct {
	ValidationURL string `json:"validation_url"`
	MerchantID    string `json:"merchant_id"`
	DomainName    string `json:"domain_name"`
	DisplayName   string `json:"display_name"`
}

// MerchantValidator performs the merchant validation round trip.
type MerchantValidator interface {
	ValidateMerchant(ctx context.Context, req MerchantValidationRequest) (json.RawMessage, error)
}

// MerchantValidatorFunc lifts bare functions into [MerchantValidator].
type MerchantValidatorFunc func(ctx context.Context, req MerchantValidationRequest) (json.RawMessage, error)

// ValidateMerchant delegates to the wrapped function.
func (f MerchantValidatorFunc) ValidateMerchant(ctx context.Context, req MerchantValidationRequest) (json.RawMessage, error) {
	return f(ctx, req)
}

// HTTPMerchantValidator posts the validation request as JSON to Endpoint and
// expects a JSON object back.
type HTTPMerchantValidator struct {
	Endpoint string
	Client   *http.Client
}

// ValidateMerchant implements [MerchantValidator].
func (v HTTPMerchantValidator) ValidateMerchant(ctx context.Context, req MerchantValidationRequest) (json.RawMessage, error) {
	if v.Endpoint == "" {
		return nil, errors.New("merchant validation: endpoint is required")
	}
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("merchant validation: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("merchant validation: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("merchant validation: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("merchant validation: endpoint %s returned %s: %s", v.Endpoint, resp.Status, strings.TrimSpace(string(snippet)))
	}
	var session json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("merchant validation: decode merchant session: %w", err)
	}
	trimmed := bytes.TrimSpace(session)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("merchant validation: merchant session must be a JSON object")
	}
	return session, nil
}

// newMerchantValidationHandler binds a validator to the Apple Pay method
// configuration of a request.
func newMerchantValidationHandler(v MerchantValidator, data ApplePayMethodData, domainName string) MerchantValidationHandler {
	return func(ctx context.Context, event MerchantValidationEvent) (json.RawMessage, error) {
		return v.ValidateMerchant(ctx, MerchantValidationRequest{
			ValidationURL: event.ValidationURL,
			MerchantID:    data.MerchantIdentifier,
			DomainName:    domainName,
			DisplayName:   data.DisplayName,
		})
	}
}
