package decode

import "errors"

// ErrDecode is matched by every *DecodeError via errors.Is
var ErrDecode = errors.New("audio decode failed")

// Common error codes
const (
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeDecoding          = "DECODING_FAILED"
	ErrCodeEmptyAudio        = "EMPTY_AUDIO"
	ErrCodeInvalidAudio      = "INVALID_AUDIO"
)

// DecodeError represents a failure to turn an uploaded file into a signal
type DecodeError struct {
	Format  Format `json:"format"`
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrDecode
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// NewDecodeError creates a new decode error
func NewDecodeError(format Format, path, code, message string, cause error) *DecodeError {
	return &DecodeError{
		Format:  format,
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
