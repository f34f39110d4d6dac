package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
	"github.com/RyanBlaney/speech-analyzer/pkg/decode"
	"github.com/RyanBlaney/speech-analyzer/pkg/report"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	InputFile    string // Recording to analyze (required)
	Format       string // Overrides the format derived from the file extension
	ProfileFile  string // Analysis profile (optional)
	OutputFile   string
	OutputFormat string
	WaveformFile string
	Verbose      bool

	// Runtime context
	Logger  logging.Logger
	Config  *configs.Config
	Profile *AnalysisProfile
	Decoder decode.Decoder // nil uses the transcode decoder
	Stdout  io.Writer      // nil uses os.Stdout
}

// AnalyzerApp handles the analysis application lifecycle
type AnalyzerApp struct {
	ctx       *Context
	config    *configs.Config
	decoder   decode.Decoder
	extractor *speech.Extractor
	logger    logging.Logger
}

// NewAnalyzerApp creates a new analyzer application
func NewAnalyzerApp(ctx *Context) (*AnalyzerApp, error) {
	if ctx.InputFile == "" {
		return nil, fmt.Errorf("input audio file is required")
	}

	// Load configuration
	config, profile, err := loadAndMergeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config
	ctx.Profile = profile

	// Set up logging
	logger := setupLogging(ctx)
	ctx.Logger = logger

	transcoder, extractor, err := NewComponents(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	var decoder decode.Decoder = transcoder
	if ctx.Decoder != nil {
		decoder = ctx.Decoder
	}

	logger.Debug("Analyzer application initialized", logging.Fields{
		"input_file":    ctx.InputFile,
		"profile_file":  ctx.ProfileFile,
		"output_format": config.OutputFormat,
		"frame_length":  config.Pitch.FrameLength,
		"hop_length":    config.Pitch.HopLength,
	})

	return &AnalyzerApp{
		ctx:       ctx,
		config:    config,
		decoder:   decoder,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Run decodes, analyzes and reports on the input recording
func (app *AnalyzerApp) Run(ctx context.Context) error {
	format, err := app.resolveFormat()
	if err != nil {
		return err
	}

	start := time.Now()
	sig, err := app.decoder.Decode(ctx, app.ctx.InputFile, format)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", app.ctx.InputFile, err)
	}

	rep, err := app.extractor.Analyze(sig)
	if err != nil {
		return fmt.Errorf("speech analysis failed: %w", err)
	}

	app.logger.Debug("Speech analysis completed", logging.Fields{
		"format":         string(format),
		"duration_s":     rep.Metrics.DurationSeconds,
		"clarity_score":  rep.Metrics.ClarityScore,
		"level":          string(rep.Assessment.Level),
		"analysis_ms":    time.Since(start).Milliseconds(),
		"recommendation": len(rep.Assessment.Recommendations),
	})

	if app.ctx.WaveformFile != "" {
		if err := app.writeWaveform(sig); err != nil {
			return err
		}
	}

	if err := app.outputResults(rep); err != nil {
		return fmt.Errorf("failed to output results: %w", err)
	}

	if app.config.Metrics.Enabled {
		app.collectAnalysisMetrics(rep, format)
	}

	return nil
}

// resolveFormat prefers the explicit format over the file extension
func (app *AnalyzerApp) resolveFormat() (decode.Format, error) {
	if app.ctx.Format != "" {
		return decode.ParseFormat(app.ctx.Format)
	}
	return decode.FormatFromPath(app.ctx.InputFile)
}

// setupLogging configures logging based on context
func setupLogging(ctx *Context) logging.Logger {
	if ctx.Logger != nil {
		return ctx.Logger
	}
	return ConfigureLogging(ctx.Config)
}

// ConfigureLogging applies the configured level, with verbose forcing
// debug, to the shared logger and returns a logger at that level
func ConfigureLogging(config *configs.Config) logging.Logger {
	level := "info"
	if config != nil {
		level = strings.ToLower(config.LogLevel)
		if config.Verbose {
			level = "debug"
		}
	}

	logger := logging.NewDefaultLogger()
	switch level {
	case "debug":
		logging.SetLevel(logging.DebugLevel)
		logger.SetLevel(logging.DebugLevel)
	case "error":
		logging.SetLevel(logging.ErrorLevel)
		logger.SetLevel(logging.ErrorLevel)
	default:
		logging.SetLevel(logging.InfoLevel)
		logger.SetLevel(logging.InfoLevel)
	}

	return logger
}

// loadAndMergeConfig loads configuration from viper and the optional
// profile, then merges CLI flags
func loadAndMergeConfig(ctx *Context) (*configs.Config, *AnalysisProfile, error) {
	baseConfig := ctx.Config
	if baseConfig == nil {
		loaded, err := configs.LoadConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load base configuration: %w", err)
		}
		baseConfig = loaded
	}

	var profile *AnalysisProfile
	if ctx.ProfileFile != "" {
		loaded, err := loadProfileFromFile(ctx.ProfileFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load analysis profile: %w", err)
		}
		profile = loaded
	}

	mergedConfig := mergeConfig(baseConfig, profile, ctx)

	if err := configs.ValidateConfig(mergedConfig); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return mergedConfig, profile, nil
}

// outputResults formats the report and writes it to file or stdout
func (app *AnalyzerApp) outputResults(rep *speech.Report) error {
	outputData := report.Build(rep, app.config.Output.Precision)
	outputData["source"] = map[string]any{
		"file":        filepath.Base(app.ctx.InputFile),
		"analyzed_at": time.Now().UTC().Format(time.RFC3339),
	}
	if app.ctx.Profile != nil && app.ctx.Profile.Name != "" {
		outputData["source"].(map[string]any)["profile"] = app.ctx.Profile.Name
	}

	var formatted []byte
	if strings.EqualFold(app.config.OutputFormat, "text") {
		formatted = []byte(report.Text(report.Sections(rep, app.config.Output.Precision)))
	} else {
		var err error
		formatted, err = report.Render(outputData, app.config.OutputFormat)
		if err != nil {
			return err
		}
	}

	if app.ctx.OutputFile != "" {
		return app.writeToFile(app.ctx.OutputFile, formatted)
	}

	_, err := app.stdout().Write(formatted)
	return err
}

func (app *AnalyzerApp) stdout() io.Writer {
	if app.ctx.Stdout != nil {
		return app.ctx.Stdout
	}
	return os.Stdout
}

// writeWaveform renders the waveform SVG next to the report
func (app *AnalyzerApp) writeWaveform(sig *audio.Signal) error {
	var buf bytes.Buffer
	if err := report.Waveform(sig, &buf, app.config.Output.WaveformWidth, app.config.Output.WaveformHeight); err != nil {
		return fmt.Errorf("failed to render waveform: %w", err)
	}
	return app.writeToFile(app.ctx.WaveformFile, buf.Bytes())
}

// collectAnalysisMetrics sends analysis metrics to rootcollector
func (app *AnalyzerApp) collectAnalysisMetrics(rep *speech.Report, format decode.Format) {
	err := rootlogger.Configure(logger.LogOptions{
		Out:          app.config.Metrics.LogFile,
		ReopenSignal: syscall.SIGHUP,
		Level:        logtypes.InfoLevel,
	})
	if err != nil {
		app.logger.Error(err, "Failed configuring metrics writer")
		return
	}

	tags := []string{
		"level:" + string(rep.Assessment.Level),
		"format:" + string(format),
	}

	m := rep.Metrics
	rootcollector.Metric("speech.analysis.duration.milliseconds", int64(math.Round(m.DurationSeconds*1000)), tags)
	rootcollector.Metric("speech.analysis.clarity_score", int64(math.Round(m.ClarityScore)), tags)
	rootcollector.Metric("speech.analysis.silence_ratio.permille", int64(math.Round(m.SilenceRatio*1000)), tags)
	if m.HasPitch() {
		rootcollector.Metric("speech.analysis.pitch.hz", int64(math.Round(m.AveragePitchHz)), tags)
	}
}

// writeToFile writes data to the specified output file
func (app *AnalyzerApp) writeToFile(path string, data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": path,
		"size_bytes":  len(data),
	})

	return nil
}
