package decode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/stream/common"
	"github.com/RyanBlaney/sonido-sonar/transcode"

	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
)

// Decoder turns an audio file into a mono signal
type Decoder interface {
	Decode(ctx context.Context, path string, format Format) (*audio.Signal, error)
}

// Config contains decoder settings
type Config struct {
	ContentType string
	MaxDuration time.Duration // zero keeps the whole recording
	Logger      logging.Logger
}

// TranscodeDecoder decodes files with the ffmpeg backed normalizing decoder
type TranscodeDecoder struct {
	contentType string
	maxDuration time.Duration
	logger      logging.Logger
}

// NewTranscodeDecoder creates a decoder. A nil config decodes speech
// content without truncation.
func NewTranscodeDecoder(cfg *Config) *TranscodeDecoder {
	if cfg == nil {
		cfg = &Config{}
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = "talk"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		})
	}

	return &TranscodeDecoder{
		contentType: contentType,
		maxDuration: cfg.MaxDuration,
		logger:      logger,
	}
}

// Decode decodes the file at path. The format must be one of the
// supported formats; the container itself is probed by the decoder.
func (d *TranscodeDecoder) Decode(ctx context.Context, path string, format Format) (*audio.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, NewDecodeError(format, path, ErrCodeDecoding, "cannot read audio file", err)
	}

	logger := d.logger.WithFields(logging.Fields{
		"function": "Decode",
		"path":     path,
		"format":   string(format),
	})

	start := time.Now()
	decoder := transcode.NewNormalizingDecoder(d.contentType)
	anyData, err := decoder.DecodeFile(path)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, NewDecodeError(format, path, ErrCodeDecoding, "failed to decode audio file", err)
	}

	audioData := common.ConvertToAudioData(anyData)
	if audioData == nil {
		return nil, NewDecodeError(format, path, ErrCodeDecoding,
			fmt.Sprintf("decoder returned unexpected type: %T", anyData), nil)
	}

	sig, err := FromAudioData(audioData, d.maxDuration)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Format = format
			de.Path = path
		}
		return nil, err
	}

	logger.Debug("Audio file decoded", logging.Fields{
		"decoded_samples":     len(audioData.PCM),
		"decoded_channels":    audioData.Channels,
		"decoded_sample_rate": audioData.SampleRate,
		"mono_samples":        sig.Len(),
		"decode_time_ms":      time.Since(start).Milliseconds(),
	})

	return sig, nil
}

// FromAudioData converts decoded PCM into a mono signal, averaging
// interleaved channels and truncating to maxDuration when it is positive.
func FromAudioData(data *common.AudioData, maxDuration time.Duration) (*audio.Signal, error) {
	if data == nil {
		return nil, NewDecodeError("", "", ErrCodeDecoding, "no audio data", nil)
	}
	if data.SampleRate <= 0 {
		return nil, NewDecodeError("", "", ErrCodeInvalidAudio,
			fmt.Sprintf("decoded audio has invalid sample rate %d", data.SampleRate), nil)
	}

	mono := audio.Downmix(data.PCM, data.Channels)

	if maxDuration > 0 {
		maxSamples := int(maxDuration.Seconds() * float64(data.SampleRate))
		if len(mono) > maxSamples {
			mono = mono[:maxSamples]
		}
	}

	if len(mono) == 0 {
		return nil, NewDecodeError("", "", ErrCodeEmptyAudio, "decoded audio contains no samples", nil)
	}

	return audio.NewSignal(mono, data.SampleRate), nil
}
