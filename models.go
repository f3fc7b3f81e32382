package paymentrequest

// CurrencyAmount is a monetary value in a given ISO 4217 currency.
type CurrencyAmount struct {
	// Example: USD
	Currency string `json:"currency" validate:"required,iso4217"`
	// Decimal monetary value.
	//
	// Example: 10.00
	Value string `json:"value" validate:"required,monetary"`
}

// Item is a labelled amount, used for display items and the total.
type Item struct {
	Label  string         `json:"label"`
	Amount CurrencyAmount `json:"amount" validate:"required"`
}

// Details is the order summary presented to the payer.
type Details struct {
	// ID is the request identifier. When set at construction it is used as
	// the request id; afterwards it always mirrors [Request.ID].
	ID           *string `json:"id,omitempty"`
	DisplayItems []Item  `json:"displayItems,omitempty" validate:"omitempty,dive"`
	Total        Item    `json:"total" validate:"required"`
}

// Options selects which payer details the provider should collect.
type Options struct {
	RequestPayerName  bool   `json:"requestPayerName"`
	RequestPayerEmail bool   `json:"requestPayerEmail"`
	RequestPayerPhone bool   `json:"requestPayerPhone"`
	RequestShipping   bool   `json:"requestShipping"`
	ShippingType      string `json:"shippingType,omitempty" validate:"omitempty,oneof=shipping delivery pickup"`
}

type requestInput struct {
	MethodData []MethodData `json:"methodData" validate:"required,min=1,dive"`
	Details    Details      `json:"details" validate:"required"`
	Options    Options      `json:"options"`
}

func cloneDetails(d Details) Details {
	out := d
	if d.ID != nil {
		id := *d.ID
		out.ID = &id
	}
	if d.DisplayItems != nil {
		out.DisplayItems = append([]Item(nil), d.DisplayItems...)
	}
	return out
}

func cloneMethodData(in []MethodData) []MethodData {
	out := make([]MethodData, len(in))
	for i, m := range in {
		out[i] = MethodData{
			SupportedMethods: m.SupportedMethods,
			Data:             RawMethodData(m.Data.union),
		}
	}
	return out
}
