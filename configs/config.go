package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
	ConfigDir    string `mapstructure:"config_dir" yaml:"config_dir"`

	// Pitch tracker framing
	Pitch PitchConfig `mapstructure:"pitch" yaml:"pitch"`

	// Audio decoding
	Decoder DecoderConfig `mapstructure:"decoder" yaml:"decoder"`

	// HTTP upload UI
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Report rendering
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Metric emission
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// PitchConfig contains YIN framing settings
type PitchConfig struct {
	FrameLength     int     `mapstructure:"frame_length" yaml:"frame_length" json:"frame_length"`
	HopLength       int     `mapstructure:"hop_length" yaml:"hop_length" json:"hop_length"`
	TroughThreshold float64 `mapstructure:"trough_threshold" yaml:"trough_threshold" json:"trough_threshold"`
}

// DecoderConfig contains audio decoding settings
type DecoderConfig struct {
	ContentType string        `mapstructure:"content_type" yaml:"content_type"`
	MaxDuration time.Duration `mapstructure:"max_duration" yaml:"max_duration"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Analyses per second across all clients; zero disables limiting
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// OutputConfig contains report rendering settings
type OutputConfig struct {
	Precision      int     `mapstructure:"precision" yaml:"precision"`
	WaveformWidth  float64 `mapstructure:"waveform_width" yaml:"waveform_width"`
	WaveformHeight float64 `mapstructure:"waveform_height" yaml:"waveform_height"`
}

// MetricsConfig contains metric collector settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom loads configuration from v
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Pitch.FrameLength <= 0 {
		return fmt.Errorf("pitch frame length must be positive")
	}

	if config.Pitch.HopLength <= 0 {
		return fmt.Errorf("pitch hop length must be positive")
	}

	if config.Pitch.TroughThreshold <= 0 || config.Pitch.TroughThreshold > 1 {
		return fmt.Errorf("pitch trough threshold must be in (0, 1]")
	}

	if config.Decoder.MaxDuration < 0 {
		return fmt.Errorf("decoder max duration cannot be negative")
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload size must be positive")
	}

	if config.Server.RateLimit < 0 {
		return fmt.Errorf("server rate limit cannot be negative")
	}

	if config.Server.RateLimit > 0 && config.Server.RateBurst <= 0 {
		return fmt.Errorf("server rate burst must be positive when rate limiting is enabled")
	}

	if config.Output.Precision < 0 {
		return fmt.Errorf("output precision cannot be negative")
	}

	if config.Output.WaveformWidth <= 0 || config.Output.WaveformHeight <= 0 {
		return fmt.Errorf("waveform dimensions must be positive")
	}

	switch strings.ToLower(config.OutputFormat) {
	case "", "json", "yaml", "csv", "table", "text":
	default:
		return fmt.Errorf("unsupported output format: %s", config.OutputFormat)
	}

	return nil
}
