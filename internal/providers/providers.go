package providers

import (
	"encoding/json"
	"fmt"
)

// Environment selects the provider endpoint set. Each gateway instance is
// built for exactly one environment; sandbox and production never share a
// client or a cached token.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

const (
	NamePayPal    = "paypal"
	NameGiftogram = "giftogram"
	NameXE        = "xe"
)

// Failure is the normalized outcome of a provider call that did not succeed.
// Gateways return it as a value; transport and provider errors never escape
// the gateway boundary as a Go error.
type Failure struct {
	Code       string // machine code from the provider error body, if any
	Message    string // short human string
	StatusCode int    // HTTP status, 0 for transport failures
	Retryable  bool
	Details    json.RawMessage // raw provider payload, for logs and support
}

func (f *Failure) String() string {
	if f == nil {
		return ""
	}
	if f.Code != "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
	return f.Message
}

// TransportFailure wraps a network-level error (dial, timeout, TLS). These
// are always retryable from the system's point of view.
func TransportFailure(err error) *Failure {
	return &Failure{
		Code:      "TRANSPORT_ERROR",
		Message:   "could not reach payment provider: " + err.Error(),
		Retryable: true,
	}
}
