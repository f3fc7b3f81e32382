package paymentrequest

import (
	"context"
	"encoding/json"
)

// CompletionResult tells the provider how the merchant processed the payment.
type CompletionResult string

const (
	CompletionSuccess CompletionResult = "success"
	CompletionFail    CompletionResult = "fail"
	CompletionUnknown CompletionResult = "unknown"
)

// Address is the canonical shipping address. Every field is always present;
// values a provider does not report are empty strings.
type Address struct {
	City              string   `json:"city"`
	Country           string   `json:"country"`
	DependentLocality string   `json:"dependentLocality"`
	LanguageCode      string   `json:"languageCode"`
	Organization      string   `json:"organization"`
	Phone             string   `json:"phone"`
	PostalCode        string   `json:"postalCode"`
	Recipient         string   `json:"recipient"`
	Region            string   `json:"region"`
	SortingCode       string   `json:"sortingCode"`
	AddressLine       []string `json:"addressLine"`
}

// Response is the normalized result of a successful flow, whichever
// provider produced it.
type Response struct {
	RequestID  string
	MethodName string
	// Details is the raw provider payload. It is not part of the JSON form.
	Details         json.RawMessage
	ShippingAddress *Address
	ShippingOption  *string
	PayerName       *string
	PayerEmail      *string
	PayerPhone      *string

	complete func(ctx context.Context, result CompletionResult) error
}

type responseJSON struct {
	RequestID       string   `json:"requestId"`
	MethodName      string   `json:"methodName"`
	ShippingAddress *Address `json:"shippingAddress"`
	ShippingOption  *string  `json:"shippingOption"`
	PayerName       *string  `json:"payerName"`
	PayerEmail      *string  `json:"payerEmail"`
	PayerPhone      *string  `json:"payerPhone"`
}

// Complete finalizes the flow with the provider. An empty result is treated
// as [CompletionUnknown]. For flows the provider already finalized, such as
// PayPal, Complete does nothing.
func (r *Response) Complete(ctx context.Context, result CompletionResult) error {
	if r == nil || r.complete == nil {
		return nil
	}
	if result == "" {
		result = CompletionUnknown
	}
	return r.complete(ctx, result)
}

// MarshalJSON emits the externally visible fields. Absent contact fields are
// encoded as null.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseJSON{
		RequestID:       r.RequestID,
		MethodName:      r.MethodName,
		ShippingAddress: r.ShippingAddress,
		ShippingOption:  r.ShippingOption,
		PayerName:       r.PayerName,
		PayerEmail:      r.PayerEmail,
		PayerPhone:      r.PayerPhone,
	})
}
