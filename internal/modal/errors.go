package modal

import "fmt"

// InputError reports missing or malformed input data: an absent column, an
// empty series, or misaligned time indices. It is always fatal to the call
// that raised it; no partial result accompanies it.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func inputErrorf(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports a configuration that cannot be applied to the given
// data, such as a feature multiplier for a column that was never configured.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
