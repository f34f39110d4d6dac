package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalValidate(t *testing.T) {
	tests := []struct {
		name     string
		signal   *Signal
		wantCode string
	}{
		{"valid", NewSignal([]float64{0.1, -0.2}, 16000), ""},
		{"nil", nil, ErrCodeEmptySignal},
		{"zero sample rate", NewSignal([]float64{0.1}, 0), ErrCodeInvalidSampleRate},
		{"negative sample rate", NewSignal([]float64{0.1}, -8000), ErrCodeInvalidSampleRate},
		{"no samples", NewSignal(nil, 44100), ErrCodeEmptySignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.signal.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.wantCode, invalid.Code)
		})
	}
}

func TestSignalDuration(t *testing.T) {
	sig := NewSignal(make([]float64, 24000), 16000)
	assert.Equal(t, 1500*time.Millisecond, sig.Duration())
	assert.Equal(t, 24000, sig.Len())

	assert.Zero(t, NewSignal(make([]float64, 10), 0).Duration())
}

func TestDownmix(t *testing.T) {
	stereo := []float64{1.0, 0.0, 0.5, 0.5, -1.0, 1.0, 0.25}
	mono := Downmix(stereo, 2)
	assert.Equal(t, []float64{0.5, 0.5, 0.0}, mono)

	in := []float64{0.1, 0.2}
	out := Downmix(in, 1)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, 0.1, in[0], "mono downmix must copy")
}
