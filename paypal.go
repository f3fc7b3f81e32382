package paymentrequest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often the PayPal popup is checked for closure.
const DefaultPollInterval = 500 * time.Millisecond

// payPalBackend drives the popup and message exchange of a PayPal checkout.
type payPalBackend struct {
	window       Window
	pollInterval time.Duration
	logger       *zap.Logger
	active       activeFlow
}

func newPayPalBackend(window Window, pollInterval time.Duration, logger *zap.Logger) *payPalBackend {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &payPalBackend{window: window, pollInterval: pollInterval, logger: logger}
}

func (b *payPalBackend) Show(ctx context.Context, req *Request) (*Response, error) {
	if b.window == nil {
		return nil, newError(NotSupported, "paypal checkout requires a window")
	}
	data, err := req.methodData[0].Data.AsPayPal()
	if err != nil {
		return nil, newError(InvalidRequest, "decode paypal method data", withCause(err))
	}
	if data.CheckoutURL == "" {
		return nil, newError(NotSupported, "paypal checkoutURL is not configured")
	}
	payload, err := payPalTransactionPayload(req.id, data, req.details)
	if err != nil {
		return nil, newError(InvalidRequest, "encode paypal transaction", withCause(err))
	}

	f := newFlow(ctx)
	defer f.cancel(nil)
	b.active.set(f)
	defer b.active.clear(f)
	log := b.logger.With(zap.String("request_id", req.id))

	messages, unsubscribe := b.window.Subscribe()
	defer unsubscribe()

	popup, err := b.window.Open(f.ctx, data.CheckoutURL, req.id)
	if err != nil {
		return nil, newProviderError("open paypal popup", withCause(err))
	}
	if f.ctx.Err() != nil {
		closePopup(log, popup)
		return nil, cancellationError(f.ctx)
	}
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	form := Form{
		Action: data.CheckoutURL,
		Method: http.MethodPost,
		Target: req.id,
		Fields: url.Values{"payment": {string(payload)}},
	}
	if err := b.window.SubmitForm(f.ctx, form); err != nil {
		closePopup(log, popup)
		return nil, newProviderError("submit paypal checkout", withCause(err))
	}
	log.Debug("paypal checkout opened", zap.String("checkout_url", data.CheckoutURL))

	for {
		select {
		case <-ticker.C:
			if popup.Closed() {
				log.Debug("paypal popup closed by payer")
				return nil, newAbortError("paypal popup closed")
			}
		case msg, ok := <-messages:
			if !ok {
				closePopup(log, popup)
				return nil, newAbortError("paypal message channel closed")
			}
			if msg.Source != "" && msg.Source != req.id {
				continue
			}
			closePopup(log, popup)
			return payPalResponse(req.id, msg.Data)
		case <-f.ctx.Done():
			closePopup(log, popup)
			return nil, cancellationError(f.ctx)
		}
	}
}

func (b *payPalBackend) Abort(context.Context) error {
	if b.active.signal() {
		b.logger.Debug("paypal abort signalled")
	}
	return nil
}

func (b *payPalBackend) CanMakePayment(_ context.Context, req *Request) (bool, error) {
	data, err := req.methodData[0].Data.AsPayPal()
	if err != nil {
		return false, nil
	}
	return data.CheckoutURL != "", nil
}

func closePopup(log *zap.Logger, popup Popup) {
	if err := popup.Close(); err != nil {
		log.Warn("close paypal popup", zap.Error(err))
	}
}

// payPalTransactionPayload builds the payment creation body posted to the
// checkout URL.
func payPalTransactionPayload(requestID string, data PayPalMethodData, details Details) ([]byte, error) {
	total := details.Total.Amount
	unit := payPalTransactionUnit{
		ReferenceID: requestID,
		Amount: payPalAmount{
			Total:    total.Value,
			Currency: total.Currency,
		},
		PaymentOptions: payPalPaymentOptions{
			AllowedPaymentMethod: data.AllowedPaymentMethod,
		},
	}
	if len(details.DisplayItems) > 0 {
		items := make([]payPalItem, 0, len(details.DisplayItems))
		for _, item := range details.DisplayItems {
			items = append(items, payPalItem{
				Name:     item.Label,
				Price:    item.Amount.Value,
				Currency: item.Amount.Currency,
			})
		}
		unit.ItemList = &payPalItemList{Items: items}
	}
	return canonicaljson.Marshal(payPalTransaction{
		Intent:              data.Intent,
		Payer:               payPalPayer{PaymentMethod: "paypal"},
		Transactions:        []payPalTransactionUnit{unit},
		ExperienceProfileID: data.ExperienceProfileID,
		RedirectURLs: payPalRedirectURLs{
			ReturnURL: data.ReturnURL,
			CancelURL: data.ReturnURL,
		},
	})
}

// payPalResponse interprets the message posted by the return bridge.
func payPalResponse(requestID string, raw json.RawMessage) (*Response, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, newAbortError("paypal returned no payment")
	}
	var result payPalResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, newProviderError("decode paypal payment", withCause(err))
	}
	if result.Error != "" {
		description := result.ErrorDescription
		if description == "" {
			description = result.Error
		}
		return nil, newProviderError(description)
	}

	resp := &Response{
		RequestID:  requestID,
		MethodName: PayPalMethod,
		Details:    append(json.RawMessage(nil), trimmed...),
	}
	if result.Payer == nil || result.Payer.PayerInfo == nil {
		return resp, nil
	}
	info := result.Payer.PayerInfo
	resp.PayerName = joinName(info.FirstName, info.LastName)
	resp.PayerEmail = optionalString(info.Email)
	if addr := info.ShippingAddress; addr != nil {
		resp.PayerPhone = optionalString(addr.Phone)
		resp.ShippingAddress = &Address{
			City:        addr.City,
			Country:     addr.CountryCode,
			Phone:       addr.Phone,
			PostalCode:  addr.PostalCode,
			Recipient:   addr.RecipientName,
			Region:      addr.State,
			AddressLine: payPalAddressLines(addr.Line1, addr.Line2),
		}
	}
	return resp, nil
}

// payPalAddressLines keeps line1 in first position and adds line2 only when
// it is set.
func payPalAddressLines(line1, line2 string) []string {
	lines := []string{line1}
	if line2 != "" {
		lines = append(lines, line2)
	}
	return lines
}
