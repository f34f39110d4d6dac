package speech

import (
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
)

// Report combines the metrics of a recording with its assessment
type Report struct {
	Metrics    SpeechMetrics    `json:"metrics"`
	Assessment AssessmentResult `json:"assessment"`
}

// Analyze extracts metrics and assesses them at full precision
func (e *Extractor) Analyze(sig *audio.Signal) (*Report, error) {
	metrics, err := e.Extract(sig)
	if err != nil {
		return nil, err
	}

	return &Report{
		Metrics:    *metrics,
		Assessment: Assess(metrics.ClarityScore, metrics.DurationSeconds),
	}, nil
}

// Analyze runs the full pipeline with a one-off extractor
func Analyze(sig *audio.Signal, cfg *ExtractorConfig) (*Report, error) {
	extractor, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return extractor.Analyze(sig)
}
