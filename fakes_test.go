package paymentrequest

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

// fakeApplePayRuntime records sessions and runs an optional script once a
// session begins.
type fakeApplePayRuntime struct {
	script  func(s *fakeApplePaySession)
	canMake bool
	canErr  error

	// When release is set, NewSession reports on entered and blocks until
	// release is closed.
	entered chan struct{}
	release chan struct{}

	mu          sync.Mutex
	merchantIDs []string
	sessions    chan *fakeApplePaySession
}

func newFakeApplePayRuntime(script func(s *fakeApplePaySession)) *fakeApplePayRuntime {
	return &fakeApplePayRuntime{script: script, sessions: make(chan *fakeApplePaySession, 4)}
}

func (r *fakeApplePayRuntime) NewSession(version int, request json.RawMessage, handlers ApplePaySessionHandlers) (ApplePaySession, error) {
	s := &fakeApplePaySession{
		version:   version,
		request:   request,
		handlers:  handlers,
		script:    r.script,
		begun:     make(chan struct{}),
		validated: make(chan json.RawMessage, 1),
		aborted:   make(chan struct{}),
	}
	if r.release != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	r.sessions <- s
	return s, nil
}

func (r *fakeApplePayRuntime) CanMakePaymentsWithActiveCard(_ context.Context, merchantIdentifier string) (bool, error) {
	r.mu.Lock()
	r.merchantIDs = append(r.merchantIDs, merchantIdentifier)
	r.mu.Unlock()
	return r.canMake, r.canErr
}

// began returns the next session once Begin ran.
func (r *fakeApplePayRuntime) began(t *testing.T) *fakeApplePaySession {
	t.Helper()
	select {
	case s := <-r.sessions:
		select {
		case <-s.begun:
			return s
		case <-time.After(testTimeout):
			t.Fatalf("session never began")
		}
	case <-time.After(testTimeout):
		t.Fatalf("no session created")
	}
	return nil
}

type fakeApplePaySession struct {
	version  int
	request  json.RawMessage
	handlers ApplePaySessionHandlers
	script   func(s *fakeApplePaySession)

	begun     chan struct{}
	validated chan json.RawMessage
	abortOnce sync.Once
	aborted   chan struct{}

	mu       sync.Mutex
	statuses []ApplePayStatus
}

func (s *fakeApplePaySession) Begin() error {
	close(s.begun)
	if s.script != nil {
		go s.script(s)
	}
	return nil
}

func (s *fakeApplePaySession) Abort() error {
	s.abortOnce.Do(func() { close(s.aborted) })
	return nil
}

func (s *fakeApplePaySession) CompleteMerchantValidation(merchantSession json.RawMessage) error {
	s.validated <- merchantSession
	return nil
}

func (s *fakeApplePaySession) CompletePayment(status ApplePayStatus) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, status)
	s.mu.Unlock()
	return nil
}

func (s *fakeApplePaySession) hasBegun() bool {
	select {
	case <-s.begun:
		return true
	default:
		return false
	}
}

func (s *fakeApplePaySession) isAborted() bool {
	select {
	case <-s.aborted:
		return true
	default:
		return false
	}
}

// awaitValidation blocks until merchant validation completed or the session
// was aborted.
func (s *fakeApplePaySession) awaitValidation() (json.RawMessage, bool) {
	select {
	case ms := <-s.validated:
		return ms, true
	case <-s.aborted:
		return nil, false
	}
}

type openCall struct {
	url  string
	name string
}

// fakeWindow is a scripted browsing context for the PayPal flow. Every Open
// returns a fresh popup.
type fakeWindow struct {
	openErr error

	// When release is set, Open reports on opening and blocks until release
	// is closed.
	opening chan struct{}
	release chan struct{}

	opened    chan openCall
	submitted chan Form

	mu           sync.Mutex
	last         *fakePopup
	subscribers  []chan Message
	unsubscribed atomic.Int32
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{
		opened:    make(chan openCall, 4),
		submitted: make(chan Form, 4),
	}
}

func (w *fakeWindow) Open(_ context.Context, url, name string) (Popup, error) {
	if w.openErr != nil {
		return nil, w.openErr
	}
	if w.release != nil {
		w.opening <- struct{}{}
		<-w.release
	}
	popup := &fakePopup{}
	w.mu.Lock()
	w.last = popup
	w.mu.Unlock()
	w.opened <- openCall{url: url, name: name}
	return popup, nil
}

// popup returns the most recently opened popup.
func (w *fakeWindow) popup() *fakePopup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *fakeWindow) SubmitForm(_ context.Context, form Form) error {
	w.submitted <- form
	return nil
}

func (w *fakeWindow) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 4)
	w.mu.Lock()
	w.subscribers = append(w.subscribers, ch)
	w.mu.Unlock()
	var once sync.Once
	return ch, func() { once.Do(func() { w.unsubscribed.Add(1) }) }
}

func (w *fakeWindow) deliver(msg Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subscribers {
		ch <- msg
	}
}

// signalled waits for a blocking fake to report that it was entered.
func signalled(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Fatalf("%s was never called", what)
	}
}

func (w *fakeWindow) awaitSubmit(t *testing.T) Form {
	t.Helper()
	select {
	case form := <-w.submitted:
		return form
	case <-time.After(testTimeout):
		t.Fatalf("checkout form was never submitted")
	}
	return Form{}
}

type fakePopup struct {
	closed     atomic.Bool
	closeCalls atomic.Int32
	checks     atomic.Int64
}

func (p *fakePopup) Closed() bool {
	p.checks.Add(1)
	return p.closed.Load()
}

func (p *fakePopup) Close() error {
	p.closeCalls.Add(1)
	p.closed.Store(true)
	return nil
}

// stubNative is a NativeImplementation with function fields.
type stubNative struct {
	id        string
	show      func(ctx context.Context) (*Response, error)
	abort     func(ctx context.Context) error
	canMake   func(ctx context.Context) (bool, error)
	validator MerchantValidationHandler
}

func (s *stubNative) ID() string { return s.id }

func (s *stubNative) Show(ctx context.Context) (*Response, error) {
	if s.show != nil {
		return s.show(ctx)
	}
	return &Response{RequestID: s.id, MethodName: "native"}, nil
}

func (s *stubNative) Abort(ctx context.Context) error {
	if s.abort != nil {
		return s.abort(ctx)
	}
	return nil
}

func (s *stubNative) CanMakePayment(ctx context.Context) (bool, error) {
	if s.canMake != nil {
		return s.canMake(ctx)
	}
	return true, nil
}

func (s *stubNative) SetMerchantValidationHandler(h MerchantValidationHandler) {
	s.validator = h
}

func nativeFactory(native *stubNative) NativeFactory {
	return func([]MethodData, Details, Options) (NativeImplementation, error) {
		return native, nil
	}
}

type showResult struct {
	resp *Response
	err  error
}

// showAsync runs Show on its own goroutine.
func showAsync(req *Request) <-chan showResult {
	out := make(chan showResult, 1)
	go func() {
		resp, err := req.Show(context.Background())
		out <- showResult{resp: resp, err: err}
	}()
	return out
}

func awaitResult(t *testing.T, results <-chan showResult) showResult {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(testTimeout):
		t.Fatalf("show did not settle")
	}
	return showResult{}
}

func usdTotal(value string) Details {
	return Details{
		Total: Item{Label: "Total", Amount: CurrencyAmount{Currency: "USD", Value: value}},
	}
}

func methodData(method, raw string) []MethodData {
	return []MethodData{{SupportedMethods: method, Data: RawMethodData(json.RawMessage(raw))}}
}
