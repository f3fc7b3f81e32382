// Package paymentrequest implements a single payment request contract on top
// of several unrelated payment providers.
//
// # Request
//
// Build a request with [NewRequest] from an ordered list of [MethodData], the
// order [Details] and the payer [Options]. The first method descriptor selects
// the flow when [Request.Show] runs:
//
//   - [ApplePayMethod] runs natively when a platform implementation is
//     configured with [WithNative], else through an Apple Pay session created by
//     the runtime given to [WithApplePay].
//   - [PayPalMethod] always runs the popup checkout against the method's
//     checkoutURL, using the [Window] given to [WithWindow].
//   - Any other identifier is delegated to the native implementation, or fails
//     with [NotSupported].
//
// Additional identifiers can be served by registering a [Backend] with
// [WithBackend].
//
// # Response
//
// Every flow resolves with the same [Response] shape. Contact fields the
// provider did not report are nil, and a reported [Address] always carries
// every field. Call [Response.Complete] once the merchant has processed the
// payment so the provider can close its sheet.
//
// # Errors
//
// Failures are [*Error] values. Use errors.Is with [ErrInvalidState],
// [ErrNotSupported], [ErrAbort] or [ErrProvider] to branch on the kind.
//
// The backend endpoints these flows call (merchant validation, checkout
// creation and the checkout return bridge) live in package gateway.
package paymentrequest
