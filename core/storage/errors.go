package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Store.Head (and wrapped by other calls) when the
// store answered with a 404-class response for the key.
var ErrNotFound = errors.New("object not found")

// ConfigurationError reports missing or invalid store settings.
// It is raised before any network call is attempted.
type ConfigurationError struct {
	// Missing lists the environment variables that were not set.
	Missing []string
	// Reason describes an invalid (rather than missing) setting.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("configuration error: missing %s", strings.Join(e.Missing, ", "))
	}
	return "configuration error: " + e.Reason
}

// IsNotFound reports whether err is a not-found answer from the store.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(key string) error {
	return fmt.Errorf("%s: %w", key, ErrNotFound)
}
