package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/pkg/decode"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

// AnalysisProfile is a per-run override of the pitch tracker framing
type AnalysisProfile struct {
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description" json:"description"`
	Pitch       configs.PitchConfig `yaml:"pitch" json:"pitch"`
}

// loadProfileFromFile loads an analysis profile from a YAML or JSON file
func loadProfileFromFile(filePath string) (*AnalysisProfile, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("profile file does not exist: %s", filePath)
	}

	data, err := readProfileFile(filePath)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		return parseProfileYAML(data)
	case ".json":
		return parseProfileJSON(data)
	default:
		// Try YAML first, then JSON
		if profile, err := parseProfileYAML(data); err == nil {
			return profile, nil
		}
		return parseProfileJSON(data)
	}
}

func readProfileFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return data, nil
}

func parseProfileYAML(data []byte) (*AnalysisProfile, error) {
	var profile AnalysisProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
	}
	return &profile, nil
}

func parseProfileJSON(data []byte) (*AnalysisProfile, error) {
	var profile AnalysisProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse JSON profile: %w", err)
	}
	return &profile, nil
}

// mergeConfig layers the profile and CLI flags over the base configuration.
// The base configuration is not modified.
func mergeConfig(baseConfig *configs.Config, profile *AnalysisProfile, ctx *Context) *configs.Config {
	merged := *baseConfig

	if profile != nil {
		if profile.Pitch.FrameLength > 0 {
			merged.Pitch.FrameLength = profile.Pitch.FrameLength
		}
		if profile.Pitch.HopLength > 0 {
			merged.Pitch.HopLength = profile.Pitch.HopLength
		}
		if profile.Pitch.TroughThreshold > 0 {
			merged.Pitch.TroughThreshold = profile.Pitch.TroughThreshold
		}
	}

	if ctx.OutputFormat != "" {
		merged.OutputFormat = ctx.OutputFormat
	}
	if ctx.Verbose {
		merged.Verbose = true
	}

	return &merged
}

// extractorConfig maps the pitch section onto the feature extractor
func extractorConfig(cfg *configs.Config) *speech.ExtractorConfig {
	return &speech.ExtractorConfig{
		FrameLength:     cfg.Pitch.FrameLength,
		HopLength:       cfg.Pitch.HopLength,
		TroughThreshold: cfg.Pitch.TroughThreshold,
	}
}

// decoderConfig maps the decoder section onto the transcode decoder
func decoderConfig(cfg *configs.Config) *decode.Config {
	return &decode.Config{
		ContentType: cfg.Decoder.ContentType,
		MaxDuration: cfg.Decoder.MaxDuration,
	}
}

// NewComponents builds the decoder and feature extractor described by cfg
func NewComponents(cfg *configs.Config) (*decode.TranscodeDecoder, *speech.Extractor, error) {
	extractor, err := speech.NewExtractor(extractorConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return decode.NewTranscodeDecoder(decoderConfig(cfg)), extractor, nil
}

// ValidateProfile loads a profile, applies it to the defaults and checks
// the result
func ValidateProfile(profileFile string) (*AnalysisProfile, error) {
	profile, err := loadProfileFromFile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	merged := mergeConfig(configs.GetDefaultConfig(), profile, &Context{})
	if err := configs.ValidateConfig(merged); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}
	if _, err := speech.NewExtractor(extractorConfig(merged)); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}

	return profile, nil
}
