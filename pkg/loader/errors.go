package loader

import (
	"errors"
	"fmt"
)

// Load failures. Every error returned by LoadImage and LoadHeader wraps
// exactly one of these; the rest of the message is the human-readable reason.
// An invalid LoadMode and a cancelled context are reported as ErrDecode.
var (
	ErrAllocation     = errors.New("allocation failure")
	ErrEngineInit     = errors.New("decoder initialization failed")
	ErrInputExhausted = errors.New("input exhausted")
	ErrDecode         = errors.New("decoder error")
	ErrSizeMismatch   = errors.New("invalid output buffer size")
	ErrUnknownStatus  = errors.New("unknown decoder status")

	ErrSaveNotImplemented = errors.New("saving is not implemented")
)

// decodeError reports a StatusError, carrying the engine's cause if any
func decodeError(eng Engine) error {
	if cause := eng.Err(); cause != nil {
		return fmt.Errorf("%w: %w", ErrDecode, cause)
	}
	return ErrDecode
}
