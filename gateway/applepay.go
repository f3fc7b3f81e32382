package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sumup/paymentrequest"
)

var errInvalidValidationURL = errors.New("validation_url must be an https URL on an Apple Pay host")

// startSessionRequest is the body Apple's merchant validation endpoint expects.
type startSessionRequest struct {
	MerchantIdentifier string `json:"merchantIdentifier"`
	DomainName         string `json:"domainName"`
	DisplayName        string `json:"displayName"`
}

// applePayValidator calls Apple's merchant validation endpoint with the
// merchant identity certificate.
type applePayValidator struct {
	cfg     ApplePayConfig
	timeout time.Duration
	client  func() (*http.Client, error)

	mu     sync.Mutex
	loaded *http.Client
}

func newApplePayValidator(cfg ApplePayConfig, o options) *applePayValidator {
	v := &applePayValidator{cfg: cfg, timeout: o.timeout}
	if o.applePayClient != nil {
		client := instrumentClient(o.applePayClient, o.timeout)
		v.client = func() (*http.Client, error) { return client, nil }
		return v
	}
	v.client = v.certificateClient
	return v
}

// certificateClient builds the client on first use. A failed load is not
// cached, so the next request reads the certificate again.
func (v *applePayValidator) certificateClient() (*http.Client, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded != nil {
		return v.loaded, nil
	}
	// The PEM holds both the certificate and its private key.
	cert, err := tls.LoadX509KeyPair(v.cfg.CertificatePath, v.cfg.CertificatePath)
	if err != nil {
		return nil, fmt.Errorf("load merchant identity certificate: %w", err)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}
	v.loaded = &http.Client{Transport: otelhttp.NewTransport(transport), Timeout: v.timeout}
	return v.loaded, nil
}

func instrumentClient(client *http.Client, timeout time.Duration) *http.Client {
	wrapped := *client
	wrapped.Transport = otelhttp.NewTransport(client.Transport)
	if wrapped.Timeout == 0 {
		wrapped.Timeout = timeout
	}
	return &wrapped
}

// resolve fills missing fields from configuration and checks the
// validation URL.
func (v *applePayValidator) resolve(req paymentrequest.MerchantValidationRequest) (string, startSessionRequest, error) {
	target := req.ValidationURL
	if target == "" {
		target = v.cfg.ValidationURL
	}
	if !v.allowedURL(target) {
		return "", startSessionRequest{}, errInvalidValidationURL
	}
	body := startSessionRequest{
		MerchantIdentifier: firstNonEmpty(req.MerchantID, v.cfg.MerchantID),
		DomainName:         firstNonEmpty(req.DomainName, v.cfg.DomainName),
		DisplayName:        firstNonEmpty(req.DisplayName, v.cfg.DisplayName),
	}
	return target, body, nil
}

func (v *applePayValidator) allowedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range v.cfg.AllowedHostSuffixes {
		suffix = strings.ToLower(suffix)
		if strings.HasPrefix(suffix, ".") {
			if strings.HasSuffix(host, suffix) || host == suffix[1:] {
				return true
			}
			continue
		}
		if host == suffix {
			return true
		}
	}
	return false
}

// startSession posts to Apple and returns the merchant session unchanged.
func (v *applePayValidator) startSession(ctx context.Context, target string, body startSessionRequest) (json.RawMessage, error) {
	client, err := v.client()
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, ProcessingError, MissingCertificate, err.Error())
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal start session request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build start session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewProcessingError(fmt.Sprintf("apple pay merchant validation: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewProcessingError(fmt.Sprintf("read merchant session: %v", err))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, NewProcessingError(fmt.Sprintf("apple pay merchant validation returned %s: %s", resp.Status, snippet))
	}
	if !json.Valid(raw) {
		return nil, NewProcessingError("apple pay merchant validation returned invalid JSON")
	}
	return raw, nil
}

func (h *Handler) handleApplePayValidate(w http.ResponseWriter, r *http.Request) {
	var req paymentrequest.MerchantValidationRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	target, body, err := h.applePay.resolve(req)
	if err != nil {
		writeJSONError(w, NewHTTPError(http.StatusBadRequest, InvalidRequest, InvalidValidationURL, err.Error(), WithOffendingParam("validation_url")))
		return
	}
	session, err := h.applePay.startSession(r.Context(), target, body)
	if err != nil {
		h.logger(r).Warn("merchant validation failed", zap.String("validation_url", target), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, session)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
