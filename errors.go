package opticore

import (
	"fmt"

	"github.com/lumeon/opticore/model"
)

// ConfigurationError reports an invalid or unloadable piece of runtime
// configuration, such as a missing hardware descriptor.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports an operation attempted against a device link that
// is not in a status able to serve it.
type ConnectionError struct {
	Op     string
	Status model.Status
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot %s: device link is %s", e.Op, e.Status)
}
