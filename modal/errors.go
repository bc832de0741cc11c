package modal

import (
	"errors"
	"fmt"
)

// Configuration errors. They are only returned by constructors and
// reconfiguration calls, never by the per-sample path.
var (
	ErrModeCount  = errors.New("modal: invalid mode count")
	ErrDimension  = errors.New("modal: invalid dimension")
	ErrChannels   = errors.New("modal: invalid channel count")
	ErrSampleRate = errors.New("modal: sample rate must be > 0")
	ErrLength     = errors.New("modal: length must be > 0")
	ErrPinchSize  = errors.New("modal: pinch vector length does not match mode count")
	ErrGeometry   = errors.New("modal: nil geometry")
)

// ConfigError reports which configuration field was rejected.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v (%s=%v)", e.Err, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
