package paymentrequest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type applePayState int

const (
	applePayCreated applePayState = iota
	applePaySessionBegun
	applePayValidationPending
	applePayValidated
	applePayValidationFailed
	applePayAuthorizationPending
	applePayCompleted
	applePayCancelled
)

func (s applePayState) String() string {
	switch s {
	case applePayCreated:
		return "created"
	case applePaySessionBegun:
		return "session_begun"
	case applePayValidationPending:
		return "validation_pending"
	case applePayValidated:
		return "validated"
	case applePayValidationFailed:
		return "validation_failed"
	case applePayAuthorizationPending:
		return "authorization_pending"
	case applePayCompleted:
		return "completed"
	case applePayCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("applePayState(%d)", int(s))
	}
}

// applePayBackend drives an Apple Pay session through merchant validation
// and payment authorization.
type applePayBackend struct {
	runtime ApplePayRuntime
	logger  *zap.Logger
	active  activeFlow
}

func newApplePayBackend(runtime ApplePayRuntime, logger *zap.Logger) *applePayBackend {
	return &applePayBackend{runtime: runtime, logger: logger}
}

func (b *applePayBackend) Show(ctx context.Context, req *Request) (*Response, error) {
	method := req.methodData[0]
	sessionRequest, err := applePaySessionRequest(method, req.details, req.options)
	if err != nil {
		return nil, newError(InvalidRequest, "build apple pay session request", withCause(err))
	}

	f := newFlow(ctx)
	log := b.logger.With(zap.String("request_id", req.id))
	run := &applePayRun{flow: f, log: log, state: applePayCreated}

	handlers := ApplePaySessionHandlers{
		OnValidateMerchant: func(event ApplePayValidateMerchantEvent) {
			run.validateMerchant(req, event)
		},
		OnPaymentAuthorized: func(event ApplePayPaymentAuthorizedEvent) {
			run.authorized(req, event.Payment)
		},
		OnCancel: func() {
			run.transition(applePayCancelled)
			f.settle(nil, newAbortError("apple pay session cancelled"))
		},
	}
	session, err := b.runtime.NewSession(ApplePayVersion, sessionRequest, handlers)
	if err != nil {
		f.cancel(nil)
		return nil, newProviderError("create apple pay session", withCause(err))
	}
	run.setSession(session)

	b.active.set(f)
	defer b.active.clear(f)

	if f.ctx.Err() != nil {
		f.cancel(nil)
		run.transition(applePayCancelled)
		return nil, cancellationError(f.ctx)
	}

	run.transition(applePaySessionBegun)
	if err := session.Begin(); err != nil {
		f.settle(nil, newProviderError("begin apple pay session", withCause(err)))
	}
	return f.wait(func() {
		run.transition(applePayCancelled)
		if err := session.Abort(); err != nil {
			log.Warn("abort apple pay session", zap.Error(err))
		}
	})
}

func (b *applePayBackend) Abort(context.Context) error {
	if b.active.signal() {
		b.logger.Debug("apple pay abort signalled")
	}
	return nil
}

func (b *applePayBackend) CanMakePayment(ctx context.Context, req *Request) (bool, error) {
	data, err := req.methodData[0].Data.AsApplePay()
	if err != nil {
		return false, newError(InvalidRequest, "decode apple pay method data", withCause(err))
	}
	ok, err := b.runtime.CanMakePaymentsWithActiveCard(ctx, data.MerchantIdentifier)
	if err != nil {
		return false, newProviderError("query apple pay capability", withCause(err))
	}
	return ok, nil
}

// applePayRun holds the state of one Show call.
type applePayRun struct {
	flow *flow
	log  *zap.Logger

	mu      sync.Mutex
	state   applePayState
	session ApplePaySession
}

func (r *applePayRun) setSession(s ApplePaySession) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

func (r *applePayRun) transition(next applePayState) {
	r.mu.Lock()
	prev := r.state
	r.state = next
	r.mu.Unlock()
	r.log.Debug("apple pay state", zap.Stringer("from", prev), zap.Stringer("to", next))
}

func (r *applePayRun) validateMerchant(req *Request, event ApplePayValidateMerchantEvent) {
	r.transition(applePayValidationPending)
	if req.merchantValidation == nil {
		r.transition(applePayValidationFailed)
		r.fail(newProviderError("no merchant validation handler configured"))
		return
	}
	go func() {
		merchantSession, err := req.merchantValidation(r.flow.ctx, MerchantValidationEvent{
			ValidationURL: event.ValidationURL,
			MethodName:    ApplePayMethod,
		})
		if r.settled() {
			r.log.Debug("merchant session discarded, apple pay flow already settled")
			return
		}
		if err != nil {
			r.transition(applePayValidationFailed)
			r.fail(newProviderError("merchant validation failed", withCause(err)))
			return
		}
		r.mu.Lock()
		session := r.session
		r.mu.Unlock()
		if err := session.CompleteMerchantValidation(merchantSession); err != nil {
			r.transition(applePayValidationFailed)
			r.fail(newProviderError("complete merchant validation", withCause(err)))
			return
		}
		r.transition(applePayValidated)
		r.transition(applePayAuthorizationPending)
	}()
}

// settled reports whether the flow has an outcome or its token fired.
func (r *applePayRun) settled() bool {
	select {
	case <-r.flow.done:
		return true
	default:
		return r.flow.ctx.Err() != nil
	}
}

// fail rejects the flow and closes the sheet.
func (r *applePayRun) fail(err *Error) {
	if !r.flow.settle(nil, err) {
		return
	}
	r.log.Warn("apple pay flow failed", zap.Error(err))
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return
	}
	if abortErr := session.Abort(); abortErr != nil {
		r.log.Warn("abort apple pay session", zap.Error(abortErr))
	}
}

func (r *applePayRun) authorized(req *Request, payment ApplePayPayment) {
	details, err := json.Marshal(payment)
	if err != nil {
		r.fail(newProviderError("encode apple pay payment", withCause(err)))
		return
	}
	resp := applePayResponse(req.id, payment)
	resp.Details = details
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	resp.complete = func(_ context.Context, result CompletionResult) error {
		status := ApplePayStatusFailure
		if result == CompletionSuccess {
			status = ApplePayStatusSuccess
		}
		return session.CompletePayment(status)
	}
	if r.flow.settle(resp, nil) {
		r.transition(applePayCompleted)
	}
}

// applePayResponse extracts the payer contact from an authorized payment.
func applePayResponse(requestID string, payment ApplePayPayment) *Response {
	resp := &Response{
		RequestID:  requestID,
		MethodName: ApplePayMethod,
	}
	contact := payment.ShippingContact
	if contact == nil {
		return resp
	}
	resp.PayerName = joinName(contact.GivenName, contact.FamilyName)
	resp.PayerEmail = optionalString(contact.EmailAddress)
	resp.PayerPhone = optionalString(contact.PhoneNumber)
	if addr := contact.ShippingAddress; addr != nil {
		phone := addr.PhoneNumber
		if phone == "" {
			phone = contact.PhoneNumber
		}
		resp.ShippingAddress = &Address{
			City:              addr.Locality,
			Country:           addr.Country,
			DependentLocality: addr.SubLocality,
			Phone:             phone,
			PostalCode:        addr.PostalCode,
			Recipient:         derefString(resp.PayerName),
			Region:            addr.AdministrativeArea,
			AddressLine:       addressLines(addr.AddressLines...),
		}
	}
	return resp
}

// applePaySessionRequest merges the order summary and requested contact
// fields over the method data.
func applePaySessionRequest(method MethodData, details Details, options Options) (json.RawMessage, error) {
	total := details.Total
	overlay := applePaySessionOverlay{
		CurrencyCode: total.Amount.Currency,
		Total: applePayLineItem{
			Label:  total.Label,
			Amount: total.Amount.Value,
		},
		RequiredShippingContactFields: requestedContactFields(options),
	}
	for _, item := range details.DisplayItems {
		overlay.LineItems = append(overlay.LineItems, applePayLineItem{
			Label:  item.Label,
			Type:   "final",
			Amount: item.Amount.Value,
		})
	}
	patch, err := json.Marshal(overlay)
	if err != nil {
		return nil, err
	}
	data := RawMethodData(method.Data.union)
	if err := data.merge(patch); err != nil {
		return nil, err
	}
	return data.union, nil
}

func requestedContactFields(options Options) []string {
	fields := make([]string, 0, 4)
	if options.RequestPayerName {
		fields = append(fields, "name")
	}
	if options.RequestPayerEmail {
		fields = append(fields, "email")
	}
	if options.RequestPayerPhone {
		fields = append(fields, "phone")
	}
	if options.RequestShipping {
		fields = append(fields, "postalAddress")
	}
	return fields
}
