package paymentrequest

import "context"

// NativeImplementation is a payment request implementation supplied by the
// hosting platform. When present it takes over every method it is routed.
type NativeImplementation interface {
	ID() string
	Show(ctx context.Context) (*Response, error)
	Abort(ctx context.Context) error
	CanMakePayment(ctx context.Context) (bool, error)
	// SetMerchantValidationHandler installs the Apple Pay merchant validation
	// handler so Apple Pay can run natively.
	SetMerchantValidationHandler(h MerchantValidationHandler)
}

// NativeFactory builds the platform implementation for a request.
type NativeFactory func(methodData []MethodData, details Details, options Options) (NativeImplementation, error)

type nativeBackend struct {
	impl NativeImplementation
}

func (b *nativeBackend) Show(ctx context.Context, req *Request) (*Response, error) {
	if req.methodData[0].SupportedMethods == ApplePayMethod && req.merchantValidation != nil {
		b.impl.SetMerchantValidationHandler(req.merchantValidation)
	}
	return b.impl.Show(ctx)
}

func (b *nativeBackend) Abort(ctx context.Context) error {
	return b.impl.Abort(ctx)
}

func (b *nativeBackend) CanMakePayment(ctx context.Context, _ *Request) (bool, error) {
	return b.impl.CanMakePayment(ctx)
}
