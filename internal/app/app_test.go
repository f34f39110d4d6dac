package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
	"github.com/RyanBlaney/speech-analyzer/pkg/decode"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

type stubDecoder struct {
	sig        *audio.Signal
	err        error
	gotPath    string
	gotFormat  decode.Format
	decodeRuns int
}

func (d *stubDecoder) Decode(_ context.Context, path string, format decode.Format) (*audio.Signal, error) {
	d.decodeRuns++
	d.gotPath = path
	d.gotFormat = format
	return d.sig, d.err
}

func tone(freq float64, seconds float64, rate int) *audio.Signal {
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return audio.NewSignal(samples, rate)
}

func newTestContext(t *testing.T, dec decode.Decoder) (*Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &Context{
		InputFile:    "/recordings/child.wav",
		OutputFormat: "json",
		Config:       configs.GetDefaultConfig(),
		Logger:       logging.NewDefaultLogger(),
		Decoder:      dec,
		Stdout:       out,
	}, out
}

func TestRunWritesJSONReport(t *testing.T) {
	dec := &stubDecoder{sig: tone(220, 3, 8000)}
	ctx, out := newTestContext(t, dec)

	app, err := NewAnalyzerApp(ctx)
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, dec.decodeRuns)
	assert.Equal(t, decode.FormatWAV, dec.gotFormat)
	assert.Equal(t, "/recordings/child.wav", dec.gotPath)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))

	analysis := decoded["speech_pattern_analysis"].(map[string]any)
	assert.Equal(t, 3.0, analysis["duration_seconds"])
	require.NotNil(t, analysis["average_pitch_hz"])
	assert.Greater(t, analysis["average_pitch_hz"].(float64), 100.0)

	assessment := decoded["developmental_assessment"].(map[string]any)
	assert.Equal(t, speech.StatusWithinNormalRange, assessment["status"])

	source := decoded["source"].(map[string]any)
	assert.Equal(t, "child.wav", source["file"])
}

func TestRunTextOutputToFile(t *testing.T) {
	dec := &stubDecoder{sig: audio.NewSignal(make([]float64, 8000), 8000)}
	ctx, out := newTestContext(t, dec)
	ctx.OutputFormat = "text"
	ctx.OutputFile = filepath.Join(t.TempDir(), "reports", "child.txt")
	ctx.WaveformFile = filepath.Join(t.TempDir(), "child.svg")

	app, err := NewAnalyzerApp(ctx)
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background()))
	assert.Zero(t, out.Len(), "report goes to the file, not stdout")

	text, err := os.ReadFile(ctx.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Clarity Score: 0\n")
	assert.Contains(t, string(text), "Average Pitch (Hz): 0\n")
	assert.Contains(t, string(text), speech.StatusNeedsAttention)

	svg, err := os.ReadFile(ctx.WaveformFile)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestRunExplicitFormatOverridesExtension(t *testing.T) {
	dec := &stubDecoder{sig: tone(300, 1, 8000)}
	ctx, _ := newTestContext(t, dec)
	ctx.InputFile = "/recordings/upload.bin"
	ctx.Format = "audio/mpeg"

	app, err := NewAnalyzerApp(ctx)
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, decode.FormatMP3, dec.gotFormat)
}

func TestRunRejectsUnknownExtension(t *testing.T) {
	dec := &stubDecoder{sig: tone(300, 1, 8000)}
	ctx, _ := newTestContext(t, dec)
	ctx.InputFile = "/recordings/child.ogg"

	app, err := NewAnalyzerApp(ctx)
	require.NoError(t, err)

	err = app.Run(context.Background())
	assert.ErrorIs(t, err, decode.ErrDecode)
	assert.Zero(t, dec.decodeRuns)
}

func TestRunPropagatesErrors(t *testing.T) {
	decodeErr := decode.NewDecodeError(decode.FormatWAV, "/recordings/child.wav",
		decode.ErrCodeDecoding, "failed to decode audio file", errors.New("bad header"))

	ctx, _ := newTestContext(t, &stubDecoder{err: decodeErr})
	app, err := NewAnalyzerApp(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, app.Run(context.Background()), decode.ErrDecode)

	ctx, _ = newTestContext(t, &stubDecoder{sig: audio.NewSignal([]float64{0.1}, 0)})
	app, err = NewAnalyzerApp(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, app.Run(context.Background()), audio.ErrInvalidInput)
}

func TestNewAnalyzerAppRequiresInput(t *testing.T) {
	_, err := NewAnalyzerApp(&Context{Config: configs.GetDefaultConfig()})
	assert.Error(t, err)
}

func TestProfileOverridesPitchSection(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "toddler.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: toddler\npitch:\n  hop_length: 256\n"), 0644))

	jsonPath := filepath.Join(dir, "infant.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"infant","pitch":{"frame_length":4096}}`), 0644))

	profile, err := loadProfileFromFile(yamlPath)
	require.NoError(t, err)
	merged := mergeConfig(configs.GetDefaultConfig(), profile, &Context{})
	assert.Equal(t, 256, merged.Pitch.HopLength)
	assert.Equal(t, 2048, merged.Pitch.FrameLength)

	profile, err = loadProfileFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "infant", profile.Name)
	merged = mergeConfig(configs.GetDefaultConfig(), profile, &Context{OutputFormat: "yaml"})
	assert.Equal(t, 4096, merged.Pitch.FrameLength)
	assert.Equal(t, "yaml", merged.OutputFormat)

	_, err = loadProfileFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMergeConfigLeavesBaseUntouched(t *testing.T) {
	base := configs.GetDefaultConfig()
	profile := &AnalysisProfile{Pitch: configs.PitchConfig{HopLength: 128}}

	merged := mergeConfig(base, profile, &Context{Verbose: true})
	assert.Equal(t, 128, merged.Pitch.HopLength)
	assert.True(t, merged.Verbose)
	assert.Equal(t, 512, base.Pitch.HopLength)
	assert.False(t, base.Verbose)
}

func TestValidateProfile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yml")
	require.NoError(t, os.WriteFile(good, []byte("pitch:\n  trough_threshold: 0.2\n"), 0644))
	profile, err := ValidateProfile(good)
	require.NoError(t, err)
	assert.Equal(t, 0.2, profile.Pitch.TroughThreshold)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("pitch:\n  trough_threshold: 1.5\n"), 0644))
	_, err = ValidateProfile(bad)
	assert.Error(t, err)
}

// captureOutput collects everything written to stdout and stderr while fn runs
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = w, w

	captured := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(r)
		captured <- string(data)
	}()

	defer func() {
		os.Stdout, os.Stderr = stdout, stderr
	}()
	fn()

	require.NoError(t, w.Close())
	return <-captured
}

func TestVerboseRunEmitsDebugLines(t *testing.T) {
	t.Cleanup(func() { logging.SetLevel(logging.InfoLevel) })

	dec := &stubDecoder{sig: tone(220, 3, 8000)}
	ctx, out := newTestContext(t, dec)
	ctx.Logger = nil
	ctx.Verbose = true

	logs := captureOutput(t, func() {
		app, err := NewAnalyzerApp(ctx)
		require.NoError(t, err)
		require.NoError(t, app.Run(context.Background()))
	})

	assert.NotZero(t, out.Len())
	assert.Contains(t, logs, "Analyzer application initialized")
	assert.Contains(t, logs, "Speech analysis completed")
}

func TestConfigureLoggingLevels(t *testing.T) {
	t.Cleanup(func() { logging.SetLevel(logging.InfoLevel) })

	tests := []struct {
		name      string
		mutate    func(*configs.Config)
		wantDebug bool
	}{
		{"default info", func(c *configs.Config) {}, false},
		{"debug log level", func(c *configs.Config) { c.LogLevel = "debug" }, true},
		{"verbose overrides level", func(c *configs.Config) { c.LogLevel = "error"; c.Verbose = true }, true},
		{"error log level", func(c *configs.Config) { c.LogLevel = "ERROR" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configs.GetDefaultConfig()
			tt.mutate(cfg)

			logs := captureOutput(t, func() {
				logger := ConfigureLogging(cfg)
				logger.Debug("level check", logging.Fields{"case": tt.name})
			})

			if tt.wantDebug {
				assert.Contains(t, logs, "level check")
			} else {
				assert.NotContains(t, logs, "level check")
			}
		})
	}
}
