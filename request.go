package paymentrequest

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Request is a single payment request. Create it with [NewRequest].
//
// Show may be called again once a previous call settled; a second Show while
// one is pending fails with [InvalidState].
type Request struct {
	id         string
	methodData []MethodData
	details    Details
	options    Options

	shippingAddress *Address
	shippingOption  *string
	shippingType    *string

	native             NativeImplementation
	backends           *registry
	merchantValidation MerchantValidationHandler
	logger             *zap.Logger

	mu      sync.Mutex
	pending bool
	active  Backend
	abort   context.CancelCauseFunc
}

// NewRequest validates the input and prepares the backends available in the
// configured environment.
func NewRequest(methodData []MethodData, details Details, options Options, opts ...Option) (*Request, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	input := requestInput{MethodData: methodData, Details: details, Options: options}
	if err := input.Validate(); err != nil {
		return nil, newError(InvalidRequest, err.Error())
	}

	r := &Request{
		methodData: cloneMethodData(methodData),
		details:    cloneDetails(details),
		options:    options,
		logger:     cfg.logger,
	}

	var nativeBackendImpl Backend
	switch {
	case cfg.native != nil:
		native, err := cfg.native(cloneMethodData(methodData), cloneDetails(details), options)
		if err != nil {
			return nil, newError(NotSupported, "create native payment request", withCause(err))
		}
		r.native = native
		r.id = native.ID()
		nativeBackendImpl = &nativeBackend{impl: native}
	case details.ID != nil:
		r.id = *details.ID
	default:
		r.id = cfg.newID()
	}
	id := r.id
	r.details.ID = &id
	if options.ShippingType != "" {
		r.shippingType = stringPtr(options.ShippingType)
	}

	first := r.methodData[0]
	if first.SupportedMethods == ApplePayMethod {
		data, err := first.Data.AsApplePay()
		if err != nil {
			return nil, newError(InvalidRequest, "decode apple pay method data", withCause(err))
		}
		validator := cfg.validator
		if validator == nil && data.MerchantValidationURL != "" {
			validator = HTTPMerchantValidator{Endpoint: data.MerchantValidationURL, Client: cfg.httpClient}
		}
		if validator != nil {
			r.merchantValidation = newMerchantValidationHandler(validator, data, cfg.domainName)
		}
	}

	r.backends = newRegistry(nativeBackendImpl)
	if cfg.applePay != nil {
		r.backends.register(ApplePayMethod, newApplePayBackend(cfg.applePay, cfg.logger), true)
	}
	r.backends.register(PayPalMethod, newPayPalBackend(cfg.window, cfg.pollInterval, cfg.logger), false)
	for method, backend := range cfg.backends {
		r.backends.register(method, backend, false)
	}
	return r, nil
}

// ID returns the request identifier.
func (r *Request) ID() string {
	return r.id
}

// MethodData returns a copy of the method descriptors.
func (r *Request) MethodData() []MethodData {
	return cloneMethodData(r.methodData)
}

// Details returns a copy of the order summary, with ID set to the request id.
func (r *Request) Details() Details {
	return cloneDetails(r.details)
}

// Options returns the requested payer options.
func (r *Request) Options() Options {
	return r.options
}

// ShippingAddress is the address selected during the flow, if any.
func (r *Request) ShippingAddress() *Address {
	return r.shippingAddress
}

// ShippingOption is the shipping option selected during the flow, if any.
func (r *Request) ShippingOption() *string {
	return r.shippingOption
}

// ShippingType is the shipping type requested in the options, if any.
func (r *Request) ShippingType() *string {
	return r.shippingType
}

// Show runs the payment flow selected by the first method descriptor and
// blocks until it settles.
func (r *Request) Show(ctx context.Context) (*Response, error) {
	if r.id == "" {
		return nil, newError(InvalidState, "payment request has no id")
	}
	method := r.methodData[0].SupportedMethods
	backend := r.backends.lookup(method)
	if backend == nil {
		return nil, newError(NotSupported, "payment method "+method+" is not supported")
	}

	// Abort cancels showCtx with errAborted, also before the backend has
	// registered its own flow.
	showCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r.mu.Lock()
	if r.pending {
		r.mu.Unlock()
		return nil, newError(InvalidState, "payment request is already showing")
	}
	r.pending = true
	r.active = backend
	r.abort = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.pending = false
		r.active = nil
		r.abort = nil
		r.mu.Unlock()
	}()

	log := r.logger.With(zap.String("request_id", r.id), zap.String("method", method))
	log.Debug("showing payment request")
	resp, err := backend.Show(showCtx, r)
	if err != nil {
		log.Debug("payment request rejected", zap.Error(err))
		return nil, err
	}
	log.Debug("payment request resolved")
	return resp, nil
}

// Abort cancels the pending flow. Without an active flow it does nothing.
func (r *Request) Abort(ctx context.Context) error {
	if r.id == "" {
		return newError(InvalidState, "payment request has no id")
	}
	if r.native != nil {
		return r.native.Abort(ctx)
	}
	r.mu.Lock()
	active, abort := r.active, r.abort
	r.mu.Unlock()
	if active == nil {
		return nil
	}
	abort(errAborted)
	return active.Abort(ctx)
}

// CanMakePayment reports whether the selected payment method can be used.
func (r *Request) CanMakePayment(ctx context.Context) (bool, error) {
	backend := r.backends.lookup(r.methodData[0].SupportedMethods)
	if backend == nil {
		return false, nil
	}
	return backend.CanMakePayment(ctx, r)
}
