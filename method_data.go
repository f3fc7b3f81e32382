package paymentrequest

import (
	"encoding/json"

	"github.com/oapi-codegen/runtime"
)

// Well-known payment method identifiers.
const (
	ApplePayMethod = "https://apple.com/apple-pay"
	PayPalMethod   = "https://paypal.com"
)

// MethodData pairs a payment method identifier with provider specific
// configuration.
type MethodData struct {
	SupportedMethods string          `json:"supportedMethods" validate:"required"`
	Data             MethodDataValue `json:"data"`
}

// MethodDataValue holds the provider configuration as raw JSON. Unknown
// fields are preserved so they can be forwarded to the provider untouched.
type MethodDataValue struct {
	union json.RawMessage
}

// ApplePayMethodData is the configuration understood for [ApplePayMethod].
// Any other field (countryCode, supportedNetworks, merchantCapabilities, ...)
// is passed through to the Apple Pay session request.
type ApplePayMethodData struct {
	MerchantIdentifier    string   `json:"merchantIdentifier,omitempty"`
	MerchantValidationURL string   `json:"merchantValidationURL,omitempty"`
	DisplayName           string   `json:"displayName,omitempty"`
	CountryCode           string   `json:"countryCode,omitempty"`
	SupportedNetworks     []string `json:"supportedNetworks,omitempty"`
	MerchantCapabilities  []string `json:"merchantCapabilities,omitempty"`
}

// PayPalMethodData is the configuration understood for [PayPalMethod].
type PayPalMethodData struct {
	CheckoutURL          string `json:"checkoutURL,omitempty"`
	Intent               string `json:"intent,omitempty"`
	AllowedPaymentMethod string `json:"allowedPaymentMethod,omitempty"`
	ExperienceProfileID  string `json:"experienceProfileId,omitempty"`
	ReturnURL            string `json:"returnURL,omitempty"`
}

// RawMethodData wraps an arbitrary JSON document.
func RawMethodData(raw json.RawMessage) MethodDataValue {
	return MethodDataValue{union: append(json.RawMessage(nil), raw...)}
}

// Raw returns a copy of the underlying JSON document.
func (t MethodDataValue) Raw() json.RawMessage {
	return append(json.RawMessage(nil), t.union...)
}

// AsApplePay returns the union data as an ApplePayMethodData.
func (t MethodDataValue) AsApplePay() (ApplePayMethodData, error) {
	var body ApplePayMethodData
	if len(t.union) == 0 {
		return body, nil
	}
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromApplePay overwrites the union data with the provided ApplePayMethodData.
func (t *MethodDataValue) FromApplePay(v ApplePayMethodData) error {
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeApplePay merges the provided ApplePayMethodData into the union data.
func (t *MethodDataValue) MergeApplePay(v ApplePayMethodData) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.merge(b)
}

// AsPayPal returns the union data as a PayPalMethodData.
func (t MethodDataValue) AsPayPal() (PayPalMethodData, error) {
	var body PayPalMethodData
	if len(t.union) == 0 {
		return body, nil
	}
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromPayPal overwrites the union data with the provided PayPalMethodData.
func (t *MethodDataValue) FromPayPal(v PayPalMethodData) error {
	b, err := json.Marshal(v)
	t.union = b
	return err
}

func (t *MethodDataValue) merge(patch json.RawMessage) error {
	base := t.union
	if len(base) == 0 || string(base) == "null" {
		base = json.RawMessage(`{}`)
	}
	merged, err := runtime.JSONMerge(base, patch)
	if err != nil {
		return err
	}
	t.union = merged
	return nil
}

// MarshalJSON serializes the underlying union.
func (t MethodDataValue) MarshalJSON() ([]byte, error) {
	if len(t.union) == 0 {
		return []byte("null"), nil
	}
	b, err := t.union.MarshalJSON()
	return b, err
}

// UnmarshalJSON loads union data.
func (t *MethodDataValue) UnmarshalJSON(b []byte) error {
	err := t.union.UnmarshalJSON(b)
	return err
}
