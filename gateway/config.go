package gateway

import (
	"os"
	"strings"
)

const (
	// DefaultValidationURL is Apple's sandbox merchant validation endpoint.
	DefaultValidationURL = "https://apple-pay-gateway-cert.apple.com/paymentservices/startSession"

	PayPalLiveBaseURL    = "https://api.paypal.com/v1"
	PayPalSandboxBaseURL = "https://api.sandbox.paypal.com/v1"
)

// Config aggregates runtime configuration grouped by provider.
type Config struct {
	ApplePay ApplePayConfig
	PayPal   PayPalConfig
	// PostMessageOrigin is the target origin the return bridge posts to.
	PostMessageOrigin string
}

type ApplePayConfig struct {
	MerchantID  string
	DomainName  string
	DisplayName string
	// CertificatePath points to a PEM file holding both the merchant
	// identity certificate and its private key.
	CertificatePath string
	ValidationURL   string
	// AllowedHostSuffixes restricts which hosts a client-supplied
	// validation URL may point to.
	AllowedHostSuffixes []string
}

type PayPalConfig struct {
	Environment string
	ClientID    string
	Secret      string
	BaseURL     string
}

// LoadConfig reads configuration from environment variables, applying
// defaults.
func LoadConfig() Config {
	cfg := Config{
		ApplePay: ApplePayConfig{
			MerchantID:          os.Getenv("APPLE_PAY_MERCHANT_ID"),
			DomainName:          os.Getenv("APPLE_PAY_DOMAIN_NAME"),
			DisplayName:         os.Getenv("APPLE_PAY_DISPLAY_NAME"),
			CertificatePath:     getEnv("APPLE_PAY_CERT_PATH", "./merchant.pem"),
			ValidationURL:       getEnv("APPLE_PAY_VALIDATION_URL", DefaultValidationURL),
			AllowedHostSuffixes: splitAndTrim(getEnv("APPLE_PAY_ALLOWED_HOSTS", ".apple.com")),
		},
		PayPal: PayPalConfig{
			Environment: getEnv("PAYPAL_ENV", "sandbox"),
			ClientID:    os.Getenv("PAYPAL_CLIENT_ID"),
			Secret:      os.Getenv("PAYPAL_SECRET"),
		},
		PostMessageOrigin: getEnv("POST_MESSAGE_ORIGIN", "*"),
	}
	cfg.PayPal.BaseURL = getEnv("PAYPAL_API_BASE_URL", payPalBaseURL(cfg.PayPal.Environment))
	return cfg
}

func payPalBaseURL(env string) string {
	if env == "live" {
		return PayPalLiveBaseURL
	}
	return PayPalSandboxBaseURL
}

func (c Config) withDefaults() Config {
	if c.ApplePay.ValidationURL == "" {
		c.ApplePay.ValidationURL = DefaultValidationURL
	}
	if len(c.ApplePay.AllowedHostSuffixes) == 0 {
		c.ApplePay.AllowedHostSuffixes = []string{".apple.com"}
	}
	if c.PayPal.BaseURL == "" {
		c.PayPal.BaseURL = payPalBaseURL(c.PayPal.Environment)
	}
	c.PayPal.BaseURL = strings.TrimRight(c.PayPal.BaseURL, "/")
	if c.PostMessageOrigin == "" {
		c.PostMessageOrigin = "*"
	}
	return c
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
