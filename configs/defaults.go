package configs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// AppName names the binary, config file and config directory
const AppName = "speech-analyzer"

// SetDefaults registers default configuration values for all components
func SetDefaults(v *viper.Viper) {
	defaults := GetDefaultConfig()

	// Application defaults
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("output_format", defaults.OutputFormat)
	v.SetDefault("config_dir", defaults.ConfigDir)

	// Pitch defaults
	v.SetDefault("pitch.frame_length", defaults.Pitch.FrameLength)
	v.SetDefault("pitch.hop_length", defaults.Pitch.HopLength)
	v.SetDefault("pitch.trough_threshold", defaults.Pitch.TroughThreshold)

	// Decoder defaults
	v.SetDefault("decoder.content_type", defaults.Decoder.ContentType)
	v.SetDefault("decoder.max_duration", defaults.Decoder.MaxDuration)

	// Server defaults
	v.SetDefault("server.listen_addr", defaults.Server.ListenAddr)
	v.SetDefault("server.max_upload_bytes", defaults.Server.MaxUploadBytes)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit", defaults.Server.RateLimit)
	v.SetDefault("server.rate_burst", defaults.Server.RateBurst)

	// Output defaults
	v.SetDefault("output.precision", defaults.Output.Precision)
	v.SetDefault("output.waveform_width", defaults.Output.WaveformWidth)
	v.SetDefault("output.waveform_height", defaults.Output.WaveformHeight)

	// Metrics defaults
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.log_file", defaults.Metrics.LogFile)
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",
		ConfigDir:    filepath.Join(home, ".config", AppName),

		Pitch:   GetDefaultPitchConfig(),
		Decoder: GetDefaultDecoderConfig(),
		Server:  GetDefaultServerConfig(),
		Output:  GetDefaultOutputConfig(),
		Metrics: GetDefaultMetricsConfig(),
	}
}

// GetDefaultPitchConfig returns the default YIN framing
func GetDefaultPitchConfig() PitchConfig {
	return PitchConfig{
		FrameLength:     2048,
		HopLength:       512,
		TroughThreshold: 0.1,
	}
}

// GetDefaultDecoderConfig returns default decoding settings
func GetDefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		ContentType: "talk",
		MaxDuration: 0,
	}
}

// GetDefaultServerConfig returns default HTTP server settings
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8501",
		MaxUploadBytes: 50 << 20,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,

		ShutdownTimeout: 10 * time.Second,
		RateLimit:       1,
		RateBurst:       5,
	}
}

// GetDefaultOutputConfig returns default report rendering settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision:      2,
		WaveformWidth:  8,
		WaveformHeight: 2,
	}
}

// GetDefaultMetricsConfig returns default metric collector settings
func GetDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		LogFile: filepath.Join(os.TempDir(), AppName+"-metrics.log"),
	}
}
