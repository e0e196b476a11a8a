package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all services. Wrap with fmt.Errorf("%w", ...) so
// callers can classify failures with errors.Is regardless of which layer
// produced them.
var (
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded means today's send quota is exhausted.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrExternalService means a dependency (discovery API, model
	// invocation, delivery provider) failed after retries.
	ErrExternalService = errors.New("external service failure")

	// ErrValidation means the input or generated content was rejected
	// before any side effect took place.
	ErrValidation = errors.New("validation failure")

	// ErrConfigMissing means a required configuration value is absent.
	ErrConfigMissing = errors.New("configuration missing")
)

// ExternalFailure tags an upstream error with the failing service name.
func ExternalFailure(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExternalService, service, err)
}

// ValidationFailure tags a pre-flight rejection with its reason.
func ValidationFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ConfigMissing names a required configuration key that was not set.
func ConfigMissing(key string) error {
	return fmt.Errorf("%w: %s", ErrConfigMissing, key)
}
