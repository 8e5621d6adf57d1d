package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sells-group/geodir/internal/resilience"
)

// Kind classifies a geocoding failure.
type Kind string

// Failure kinds.
const (
	InvalidInput  Kind = "invalid_input"
	NotFound      Kind = "not_found"
	ProviderError Kind = "provider_error"
)

// Failure is the error returned by Client.Resolve.
type Failure struct {
	Kind       Kind
	Address    string
	Provider   string
	StatusCode int

	// Raw is the provider response body, when there was one.
	Raw string

	// Transient marks provider errors that may succeed when repeated.
	Transient bool

	Err error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("geocode: %s for %q", f.Kind, f.Address)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether repeating the call may succeed.
func (f *Failure) Retryable() bool {
	return f.Kind == ProviderError && f.Transient
}

// KindOf returns the failure kind carried by err, or "" when err is not a
// *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// BreakerConfig returns the breaker configuration for geocode calls. Only
// ProviderError trips it. Caller cancellation does not.
func BreakerConfig(threshold int, cooldown time.Duration) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Name:      "geocode",
		Threshold: threshold,
		Cooldown:  cooldown,
		Trips: func(err error) bool {
			return KindOf(err) == ProviderError && !errors.Is(err, context.Canceled)
		},
	}
}
