package paymentrequest

// ErrorKind classifies why a Show, Abort or CanMakePayment call failed.
type ErrorKind string

const (
	InvalidState   ErrorKind = "invalid_state"   // The request has no id or a show is already pending.
	NotSupported   ErrorKind = "not_supported"   // No backend can handle the payment method.
	Abort          ErrorKind = "abort"           // The payer or the caller cancelled the flow.
	ProviderError  ErrorKind = "provider_error"  // The provider or a collaborator reported a failure.
	InvalidRequest ErrorKind = "invalid_request" // Method data or details failed validation.
)

// Sentinels for use with errors.Is. Matching compares the kind only.
var (
	ErrInvalidState   = &Error{Kind: InvalidState}
	ErrNotSupported   = &Error{Kind: NotSupported}
	ErrAbort          = &Error{Kind: Abort}
	ErrProvider       = &Error{Kind: ProviderError}
	ErrInvalidRequest = &Error{Kind: InvalidRequest}
)

// Error is returned by every operation of the package.
type Error struct {
	Kind    ErrorKind
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Description returns the provider's description for ProviderError values,
// or the message for any other kind.
func (e *Error) Description() string {
	if e == nil {
		return ""
	}
	return e.Message
}

type errorOption func(*Error)

// withCause attaches the underlying error.
func withCause(err error) errorOption {
	return func(e *Error) {
		e.Err = err
	}
}

func newError(kind ErrorKind, message string, opts ...errorOption) *Error {
	err := &Error{
		Kind:    kind,
		Message: message,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(err)
	}
	return err
}

func newAbortError(message string, opts ...errorOption) *Error {
	return newError(Abort, message, opts...)
}

func newProviderError(description string, opts ...errorOption) *Error {
	return newError(ProviderError, description, opts...)
}
