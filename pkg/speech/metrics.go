package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio/pitch"
)

// SilenceThreshold is the absolute amplitude below which a sample counts
// as silent, on a [-1, 1] scale.
const SilenceThreshold = 0.01

// Pitch search band
const (
	PitchFloorNote   = "C2"
	PitchCeilingNote = "C7"
)

// SpeechMetrics holds the acoustic summary of one recording
type SpeechMetrics struct {
	DurationSeconds float64 `json:"duration_seconds"`
	AveragePitchHz  float64 `json:"average_pitch_hz"` // NaN when no frame yields an estimate
	SilenceRatio    float64 `json:"silence_ratio"`
	ClarityScore    float64 `json:"clarity_score"`
}

// Rounded returns a copy with every field rounded to two decimals for display
func (m SpeechMetrics) Rounded() SpeechMetrics {
	return SpeechMetrics{
		DurationSeconds: Round(m.DurationSeconds, 2),
		AveragePitchHz:  Round(m.AveragePitchHz, 2),
		SilenceRatio:    Round(m.SilenceRatio, 2),
		ClarityScore:    Round(m.ClarityScore, 2),
	}
}

// HasPitch reports whether the pitch estimate is defined
func (m SpeechMetrics) HasPitch() bool {
	return !math.IsNaN(m.AveragePitchHz)
}

// Round rounds half away from zero to the given number of decimals.
// NaN and infinities are returned unchanged.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// SilenceRatio returns the fraction of samples whose magnitude is below
// SilenceThreshold. Empty input yields NaN.
func SilenceRatio(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	silent := 0
	for _, s := range samples {
		if math.Abs(s) < SilenceThreshold {
			silent++
		}
	}
	return float64(silent) / float64(len(samples))
}

// ClarityScore maps a silence ratio to a 0-100 score
func ClarityScore(silenceRatio float64) float64 {
	return math.Max(0, math.Min(100, 100-silenceRatio*100))
}

// ExtractorConfig configures the feature extractor
type ExtractorConfig struct {
	FrameLength     int
	HopLength       int
	TroughThreshold float64
	Logger          logging.Logger
}

// DefaultExtractorConfig returns the default pitch tracker framing
func DefaultExtractorConfig() *ExtractorConfig {
	defaults := pitch.DefaultConfig()
	return &ExtractorConfig{
		FrameLength:     defaults.FrameLength,
		HopLength:       defaults.HopLength,
		TroughThreshold: defaults.TroughThreshold,
	}
}

// Extractor computes SpeechMetrics from a decoded signal
type Extractor struct {
	tracker *pitch.YIN
	logger  logging.Logger
}

// NewExtractor creates a feature extractor. A nil config uses the defaults.
func NewExtractor(cfg *ExtractorConfig) (*Extractor, error) {
	if cfg == nil {
		cfg = DefaultExtractorConfig()
	}

	pitchCfg := pitch.DefaultConfig()
	if cfg.FrameLength > 0 {
		pitchCfg.FrameLength = cfg.FrameLength
	}
	if cfg.HopLength > 0 {
		pitchCfg.HopLength = cfg.HopLength
	}
	if cfg.TroughThreshold > 0 {
		pitchCfg.TroughThreshold = cfg.TroughThreshold
	}
	pitchCfg.FMin = pitch.MustNoteToHz(PitchFloorNote)
	pitchCfg.FMax = pitch.MustNoteToHz(PitchCeilingNote)

	tracker, err := pitch.NewYIN(pitchCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid pitch tracker configuration: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithFields(logging.Fields{
			"component": "speech_feature_extractor",
		})
	}

	return &Extractor{
		tracker: tracker,
		logger:  logger,
	}, nil
}

// Extract computes duration, average pitch, silence ratio and clarity.
// Degenerate signals fail with *audio.InvalidInputError before any metric
// is computed. The signal is not modified.
func (e *Extractor) Extract(sig *audio.Signal) (*SpeechMetrics, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	silenceRatio := SilenceRatio(sig.Samples)
	estimates := e.tracker.Track(sig.Samples, sig.SampleRate)

	metrics := &SpeechMetrics{
		DurationSeconds: float64(sig.Len()) / float64(sig.SampleRate),
		AveragePitchHz:  pitch.Mean(estimates),
		SilenceRatio:    silenceRatio,
		ClarityScore:    ClarityScore(silenceRatio),
	}

	e.logger.Debug("Speech metrics extracted", logging.Fields{
		"samples":        sig.Len(),
		"sample_rate":    sig.SampleRate,
		"pitch_frames":   len(estimates),
		"duration_s":     metrics.DurationSeconds,
		"average_pitch":  metrics.AveragePitchHz,
		"silence_ratio":  metrics.SilenceRatio,
		"clarity_score":  metrics.ClarityScore,
		"pitch_is_undef": !metrics.HasPitch(),
	})

	return metrics, nil
}
