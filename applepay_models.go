package paymentrequest

import (
	"context"
	"encoding/json"
)

// ApplePayVersion is the Apple Pay JS API version sessions are created with.
const ApplePayVersion = 2

// ApplePayStatus is the status passed to CompletePayment.
type ApplePayStatus int

const (
	ApplePayStatusSuccess ApplePayStatus = 0
	ApplePayStatusFailure ApplePayStatus = 1
)

// ApplePayRuntime is the Apple Pay environment of the host.
type ApplePayRuntime interface {
	// NewSession creates a session for the merged session request. The
	// handlers may be invoked from any goroutine.
	NewSession(version int, request json.RawMessage, handlers ApplePaySessionHandlers) (ApplePaySession, error)
	CanMakePaymentsWithActiveCard(ctx context.Context, merchantIdentifier string) (bool, error)
}

// ApplePaySession is a single payment sheet.
type ApplePaySession interface {
	Begin() error
	Abort() error
	CompleteMerchantValidation(merchantSession json.RawMessage) error
	CompletePayment(status ApplePayStatus) error
}

// ApplePaySessionHandlers receives session events.
type ApplePaySessionHandlers struct {
	OnValidateMerchant  func(event ApplePayValidateMerchantEvent)
	OnPaymentAuthorized func(event ApplePayPaymentAuthorizedEvent)
	OnCancel            func()
}

// ApplePayValidateMerchantEvent carries the Apple validation URL.
type ApplePayValidateMerchantEvent struct {
	ValidationURL string `json:"validationURL"`
}

// ApplePayPaymentAuthorizedEvent carries the authorized payment.
type ApplePayPaymentAuthorizedEvent struct {
	Payment ApplePayPayment `json:"payment"`
}

// ApplePayPayment is the payment returned by the sheet.
type ApplePayPayment struct {
	Token           json.RawMessage         `json:"token,omitempty"`
	BillingContact  *ApplePayPaymentContact `json:"billingContact,omitempty"`
	ShippingContact *ApplePayPaymentContact `json:"shippingContact,omitempty"`
}

// ApplePayPaymentContact is the contact the payer selected.
type ApplePayPaymentContact struct {
	GivenName       string                  `json:"givenName,omitempty"`
	FamilyName      string                  `json:"familyName,omitempty"`
	EmailAddress    string                  `json:"emailAddress,omitempty"`
	PhoneNumber     string                  `json:"phoneNumber,omitempty"`
	ShippingAddress *ApplePayShippingAddress `json:"shippingAddress,omitempty"`
}

// ApplePayShippingAddress is the postal address of a contact.
type ApplePayShippingAddress struct {
	AddressLines       []string `json:"addressLines,omitempty"`
	Locality           string   `json:"locality,omitempty"`
	SubLocality        string   `json:"subLocality,omitempty"`
	AdministrativeArea string   `json:"administrativeArea,omitempty"`
	PostalCode         string   `json:"postalCode,omitempty"`
	Country            string   `json:"country,omitempty"`
	PhoneNumber        string   `json:"phoneNumber,omitempty"`
}

type applePayLineItem struct {
	Label  string `json:"label"`
	Type   string `json:"type,omitempty"`
	Amount string `json:"amount"`
}

// applePaySessionOverlay is merged over the method data to form the
// session request.
type applePaySessionOverlay struct {
	CurrencyCode                  string             `json:"currencyCode"`
	Total                         applePayLineItem   `json:"total"`
	LineItems                     []applePayLineItem `json:"lineItems,omitempty"`
	RequiredShippingContactFields []string           `json:"requiredShippingContactFields"`
}
