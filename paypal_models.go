package paymentrequest

import (
	"context"
	"encoding/json"
	"net/url"
)

// Window is the merchant page's browsing context as seen by the PayPal flow.
type Window interface {
	// Open opens url in a popup window with the given name.
	Open(ctx context.Context, url, name string) (Popup, error)
	// SubmitForm submits a hidden form, typically targeting a popup.
	SubmitForm(ctx context.Context, form Form) error
	// Subscribe starts delivering cross-window messages until cancel is
	// called.
	Subscribe() (messages <-chan Message, cancel func())
}

// Popup is a window opened by [Window.Open].
type Popup interface {
	Closed() bool
	Close() error
}

// Form is a hidden HTML form submission.
type Form struct {
	Action string
	Method string
	Target string
	Fields url.Values
}

// Message is a cross-window message. Source is the name of the sending
// window when known.
type Message struct {
	Source string
	Data   json.RawMessage
}

type payPalTransaction struct {
	Intent              string                  `json:"intent,omitempty"`
	Payer               payPalPayer             `json:"payer"`
	Transactions        []payPalTransactionUnit `json:"transactions"`
	ExperienceProfileID string                  `json:"experience_profile_id,omitempty"`
	RedirectURLs        payPalRedirectURLs      `json:"redirect_urls"`
}

type payPalPayer struct {
	PaymentMethod string `json:"payment_method"`
}

type payPalTransactionUnit struct {
	ReferenceID    string               `json:"reference_id"`
	Amount         payPalAmount         `json:"amount"`
	PaymentOptions payPalPaymentOptions `json:"payment_options"`
	ItemList       *payPalItemList      `json:"item_list,omitempty"`
}

type payPalAmount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type payPalPaymentOptions struct {
	AllowedPaymentMethod string `json:"allowed_payment_method,omitempty"`
}

type payPalItemList struct {
	Items []payPalItem `json:"items"`
}

type payPalItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

type payPalRedirectURLs struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

// payPalResult is the payload posted back by the return bridge.
type payPalResult struct {
	Error            string             `json:"error"`
	ErrorDescription string             `json:"error_description"`
	Payer            *payPalResultPayer `json:"payer"`
}

type payPalResultPayer struct {
	PayerInfo *payPalPayerInfo `json:"payer_info"`
}

type payPalPayerInfo struct {
	FirstName       string                 `json:"first_name"`
	LastName        string                 `json:"last_name"`
	Email           string                 `json:"email"`
	ShippingAddress *payPalShippingAddress `json:"shipping_address"`
}

type payPalShippingAddress struct {
	RecipientName string `json:"recipient_name"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
	Phone         string `json:"phone"`
}
