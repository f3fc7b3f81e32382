package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const approvalURL = "https://www.sandbox.paypal.com/cgi-bin/webscr?cmd=_express-checkout&token=EC-1"

type payPalStub struct {
	create func(w http.ResponseWriter, body []byte)
	get    func(w http.ResponseWriter, id string)
	calls  atomic.Int32
}

func newPayPalServer(t *testing.T, stub *payPalStub) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		if user, pass, ok := r.BasicAuth(); !ok || user != "client" || pass != "secret" {
			t.Errorf("unexpected credentials %q %q", user, pass)
		}
		body, _ := io.ReadAll(r.Body)
		stub.create(w, body)
	})
	mux.HandleFunc("GET /v1/payments/payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		stub.get(w, r.PathValue("id"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newPayPalHandler(server *httptest.Server, opts ...Option) *Handler {
	cfg := Config{
		PayPal: PayPalConfig{
			Environment: "sandbox",
			ClientID:    "client",
			Secret:      "secret",
			BaseURL:     server.URL + "/v1",
		},
		PostMessageOrigin: "https://shop.example.com",
	}
	return NewHandler(cfg, append([]Option{WithPayPalClient(server.Client())}, opts...)...)
}

func postCheckout(handler http.Handler, payment string) *httptest.ResponseRecorder {
	form := url.Values{"payment": {payment}}
	req := httptest.NewRequest(http.MethodPost, "/paypal/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPayPalCheckout(t *testing.T) {
	t.Parallel()

	payment := `{"intent":"sale","payer":{"payment_method":"paypal"},"transactions":[{"amount":{"currency":"USD","total":"10.00"},"reference_id":"req-1"}]}`
	tests := map[string]struct {
		payment      string
		create       func(w http.ResponseWriter, body []byte)
		wantStatus   int
		wantLocation string
		wantBody     []string
	}{
		"redirects to approval": {
			payment: payment,
			create: func(w http.ResponseWriter, body []byte) {
				if string(body) != payment {
					t.Errorf("expected payment forwarded untouched, got %s", body)
				}
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"PAY-1","links":[` +
					`{"href":"https://api.sandbox.paypal.com/v1/payments/payment/PAY-1","rel":"self","method":"GET"},` +
					`{"href":"` + approvalURL + `","rel":"approval_url","method":"REDIRECT"}]}`))
			},
			wantStatus:   http.StatusFound,
			wantLocation: approvalURL,
		},
		"falls back to second link": {
			payment: payment,
			create: func(w http.ResponseWriter, _ []byte) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"PAY-1","links":[{"href":"self"},{"href":"` + approvalURL + `"}]}`))
			},
			wantStatus:   http.StatusFound,
			wantLocation: approvalURL,
		},
		"provider rejects": {
			payment: payment,
			create: func(w http.ResponseWriter, _ []byte) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"name":"VALIDATION_ERROR","message":"Invalid request"}`))
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"error":"VALIDATION_ERROR"`, `"error_description":"Invalid request"`, "opener.postMessage"},
		},
		"no approval link": {
			payment: payment,
			create: func(w http.ResponseWriter, _ []byte) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"PAY-1","links":[]}`))
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"error":"NO_APPROVAL_URL"`},
		},
		"payment is not json": {
			payment:    "intent=sale",
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{`"param":"payment"`},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stub := &payPalStub{create: tc.create}
			if stub.create == nil {
				stub.create = func(w http.ResponseWriter, _ []byte) {
					t.Errorf("unexpected create call")
					w.WriteHeader(http.StatusInternalServerError)
				}
			}
			handler := newPayPalHandler(newPayPalServer(t, stub))

			rec := postCheckout(handler, tc.payment)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantLocation != "" && rec.Header().Get("Location") != tc.wantLocation {
				t.Fatalf("unexpected location %q", rec.Header().Get("Location"))
			}
			for _, want := range tc.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Fatalf("expected %q in body %s", want, rec.Body.String())
				}
			}
		})
	}
}

func TestPayPalReturn(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		query     string
		get       func(w http.ResponseWriter, id string)
		wantCalls int32
		wantBody  []string
	}{
		"payer cancelled": {
			query:    "?token=EC-1",
			wantBody: []string{`{"error":"ABORT"}`},
		},
		"approved payment": {
			query: "?paymentId=PAY-1&token=EC-1&PayerID=PAYER-1",
			get: func(w http.ResponseWriter, id string) {
				if id != "PAY-1" {
					t.Errorf("unexpected payment id %q", id)
				}
				_, _ = w.Write([]byte(`{"id":"PAY-1","payer":{"payer_info":{"email":"a@b.com"}}}`))
			},
			wantCalls: 1,
			wantBody:  []string{`"id":"PAY-1"`, `"email":"a@b.com"`},
		},
		"lookup fails": {
			query: "?paymentId=PAY-404",
			get: func(w http.ResponseWriter, _ string) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"name":"INVALID_RESOURCE_ID","message":"Requested resource ID was not found."}`))
			},
			wantCalls: 1,
			wantBody:  []string{`"error":"INVALID_RESOURCE_ID"`},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stub := &payPalStub{get: tc.get}
			handler := newPayPalHandler(newPayPalServer(t, stub))

			req := httptest.NewRequest(http.MethodGet, "/paypal/return"+tc.query, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Fatalf("unexpected content type %q", ct)
			}
			if got := stub.calls.Load(); got != tc.wantCalls {
				t.Fatalf("expected %d upstream calls, got %d", tc.wantCalls, got)
			}
			body := rec.Body.String()
			if !strings.Contains(body, "shop.example.com") {
				t.Fatalf("expected target origin in body %s", body)
			}
			for _, want := range tc.wantBody {
				if !strings.Contains(body, want) {
					t.Fatalf("expected %q in body %s", want, body)
				}
			}
		})
	}
}

func TestPayPalCircuitBreaker(t *testing.T) {
	t.Parallel()

	stub := &payPalStub{create: func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"name":"INTERNAL_SERVICE_ERROR","message":"boom"}`))
	}}
	handler := newPayPalHandler(newPayPalServer(t, stub), WithBreakerSettings(BreakerSettings{
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}))

	for range 2 {
		rec := postCheckout(handler, `{}`)
		if !strings.Contains(rec.Body.String(), `"error":"INTERNAL_SERVICE_ERROR"`) {
			t.Fatalf("expected upstream error in bridge page, got %s", rec.Body.String())
		}
	}
	rec := postCheckout(handler, `{}`)
	if !strings.Contains(rec.Body.String(), `"error":"CIRCUIT_OPEN"`) {
		t.Fatalf("expected open circuit in bridge page, got %s", rec.Body.String())
	}
	if got := stub.calls.Load(); got != 2 {
		t.Fatalf("expected the open breaker to short-circuit, got %d upstream calls", got)
	}
}

func TestPayPalDeclinesDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	stub := &payPalStub{create: func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"INSTRUMENT_DECLINED","message":"card declined"}`))
	}}
	handler := newPayPalHandler(newPayPalServer(t, stub), WithBreakerSettings(BreakerSettings{
		ConsecutiveFailures: 1,
		OpenTimeout:         time.Minute,
	}))

	for range 3 {
		rec := postCheckout(handler, `{}`)
		if !strings.Contains(rec.Body.String(), `"error_description":"card declined"`) {
			t.Fatalf("expected decline in bridge page, got %s", rec.Body.String())
		}
	}
	if got := stub.calls.Load(); got != 3 {
		t.Fatalf("expected every call to reach paypal, got %d", got)
	}
}

func TestToBridgeError(t *testing.T) {
	t.Parallel()

	got := toBridgeError(NewServiceUnavailableError("paypal is temporarily unavailable"))
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"error":"CIRCUIT_OPEN","error_description":"paypal is temporarily unavailable"}` {
		t.Fatalf("unexpected bridge error %s", raw)
	}
}
