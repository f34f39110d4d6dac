package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/internal/app"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio/pitch"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

// Terminal colors for status lines
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorReset  = "\033[0m"
)

var configTestProfile string

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Test configuration loading and display all values to verify proper parsing.

This command loads the configuration and displays all values in a structured format
to help verify that your YAML configuration is being parsed correctly.

Examples:
  # Test with default config file
  speech-analyzer config-test

  # Test with specific config file
  speech-analyzer --config /path/to/config.yaml config-test

  # Also validate an analysis profile
  speech-analyzer config-test --profile toddler.yaml`,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)

	configTestCmd.Flags().StringVar(&configTestProfile, "profile", "",
		"analysis profile file to validate")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	fmt.Println("SPEECH ANALYZER CONFIGURATION TEST")
	fmt.Println(strings.Repeat("=", 80))

	// Load configuration
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Output Format", config.OutputFormat)
	printKeyValue("Config Directory", config.ConfigDir)

	printSection("PITCH CONFIGURATION")
	printKeyValue("Frame Length", fmt.Sprintf("%d samples", config.Pitch.FrameLength))
	printKeyValue("Hop Length", fmt.Sprintf("%d samples", config.Pitch.HopLength))
	printKeyValue("Trough Threshold", fmt.Sprintf("%.3f", config.Pitch.TroughThreshold))
	printKeyValue("Search Band", fmt.Sprintf("%s-%s (%.2f-%.2f Hz)",
		speech.PitchFloorNote, speech.PitchCeilingNote,
		pitch.MustNoteToHz(speech.PitchFloorNote), pitch.MustNoteToHz(speech.PitchCeilingNote)))
	printKeyValue("Silence Threshold", fmt.Sprintf("%.3f", speech.SilenceThreshold))

	printSection("DECODER CONFIGURATION")
	printKeyValue("Content Type", config.Decoder.ContentType)
	maxDuration := "unlimited"
	if config.Decoder.MaxDuration > 0 {
		maxDuration = config.Decoder.MaxDuration.String()
	}
	printKeyValue("Max Duration", maxDuration)

	printSection("SERVER CONFIGURATION")
	printKeyValue("Listen Address", config.Server.ListenAddr)
	printKeyValue("Max Upload", fmt.Sprintf("%d bytes", config.Server.MaxUploadBytes))
	printKeyValue("Read Timeout", config.Server.ReadTimeout.String())
	printKeyValue("Write Timeout", config.Server.WriteTimeout.String())
	printKeyValue("Shutdown Timeout", config.Server.ShutdownTimeout.String())
	printKeyValue("Rate Limit", fmt.Sprintf("%.2f/s (burst %d)", config.Server.RateLimit, config.Server.RateBurst))

	printSection("OUTPUT CONFIGURATION")
	printKeyValue("Precision", fmt.Sprintf("%d", config.Output.Precision))
	printKeyValue("Waveform Size", fmt.Sprintf("%.1f x %.1f in", config.Output.WaveformWidth, config.Output.WaveformHeight))

	printSection("METRICS CONFIGURATION")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Metrics.Enabled))
	printKeyValue("Log File", config.Metrics.LogFile)

	if err := configs.ValidateConfig(config); err != nil {
		fmt.Println()
		fmt.Println(ColorRed + "CONFIGURATION IS INVALID: " + err.Error() + ColorReset)
		return err
	}

	if configTestProfile != "" {
		profile, err := app.ValidateProfile(configTestProfile)
		if err != nil {
			fmt.Println()
			fmt.Println(ColorRed + "PROFILE IS INVALID: " + err.Error() + ColorReset)
			return err
		}

		printSection("PROFILE")
		printKeyValue("File", configTestProfile)
		printKeyValue("Name", profile.Name)
		printKeyValue("Description", profile.Description)
		printSubsection("Pitch overrides")
		printKeyValue("  Frame Length", overrideValue(profile.Pitch.FrameLength))
		printKeyValue("  Hop Length", overrideValue(profile.Pitch.HopLength))
		printKeyValue("  Trough Threshold", overrideValue(profile.Pitch.TroughThreshold))
	}

	fmt.Println()
	fmt.Println(ColorGreen + strings.Repeat("-", 80))
	fmt.Println("CONFIGURATION TEST COMPLETED SUCCESSFULLY")
	fmt.Printf("Config file: %s\n", getConfigFilePath())
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	return nil
}

func overrideValue[T int | float64](v T) string {
	if v <= 0 {
		return "(inherited)"
	}
	return fmt.Sprintf("%v", v)
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printSubsection(title string) {
	fmt.Printf("\n  %s\n", title)
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

func getConfigFilePath() string {
	if used := GetConfig().ConfigFileUsed(); used != "" {
		return used
	}
	return "(none, using defaults)"
}
