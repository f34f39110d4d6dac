package audio

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every *InvalidInputError via errors.Is
var ErrInvalidInput = errors.New("invalid audio input")

// Common error codes
const (
	ErrCodeInvalidSampleRate = "INVALID_SAMPLE_RATE"
	ErrCodeEmptySignal       = "EMPTY_SIGNAL"
)

// InvalidInputError represents a degenerate signal that cannot be analyzed
type InvalidInputError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	SampleRate int    `json:"sample_rate"`
	Samples    int    `json:"samples"`
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s (sample_rate=%d, samples=%d)", e.Message, e.SampleRate, e.Samples)
}

// Is reports whether target is ErrInvalidInput
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(code, message string, sampleRate, samples int) *InvalidInputError {
	return &InvalidInputError{
		Code:       code,
		Message:    message,
		SampleRate: sampleRate,
		Samples:    samples,
	}
}
