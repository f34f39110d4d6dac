package audio

import "time"

// Signal is a decoded mono recording. Samples are normalized to [-1, 1].
// Analysis code treats it as read-only.
type Signal struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// NewSignal creates a signal from samples and a sample rate
func NewSignal(samples []float64, sampleRate int) *Signal {
	return &Signal{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

// Validate rejects signals the feature extractor cannot process
func (s *Signal) Validate() error {
	if s == nil {
		return NewInvalidInputError(ErrCodeEmptySignal, "signal is nil", 0, 0)
	}
	if s.SampleRate <= 0 {
		return NewInvalidInputError(ErrCodeInvalidSampleRate, "sample rate must be positive", s.SampleRate, len(s.Samples))
	}
	if len(s.Samples) == 0 {
		return NewInvalidInputError(ErrCodeEmptySignal, "signal has no samples", s.SampleRate, 0)
	}
	return nil
}

// Len returns the number of samples
func (s *Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the playback length. Zero for an invalid sample rate.
func (s *Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Downmix averages interleaved multi-channel PCM into a single channel.
// A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
