package detect

import "fmt"

// ConfigError reports an invalid detection parameter. Raised before any
// frame is read; never recoverable mid-run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("detect: invalid %s: %s", e.Field, e.Reason)
}
