package cmd

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/internal/app"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
	"github.com/RyanBlaney/speech-analyzer/pkg/decode"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

var (
	decoderTimeout time.Duration
	decoderFormat  string
)

var titleCaser = cases.Title(language.English)

var decoderCmd = &cobra.Command{
	Use:   "decoder-test FILE",
	Short: "Test audio decoding and print signal statistics",
	Long: `Decode a recording with the configured decoder and report what the
analyzer will see: sample rate, length, level statistics, silence ratio
and average pitch.

Examples:
  # Check that a recording decodes
  speech-analyzer decoder-test recording.mp3

  # Include level statistics and per-step timing
  speech-analyzer decoder-test --verbose recording.flac`,
	Args: cobra.ExactArgs(1),
	RunE: runDecoderTest,
}

func init() {
	rootCmd.AddCommand(decoderCmd)

	decoderCmd.Flags().DurationVar(&decoderTimeout, "timeout", 30*time.Second,
		"operation timeout")
	decoderCmd.Flags().StringVar(&decoderFormat, "format", "",
		"audio format (wav, mp3, flac); defaults to the file extension")
}

func runDecoderTest(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")
	path := args[0]

	fmt.Printf("Audio Decoder Testing: %s\n", path)
	fmt.Println(strings.Repeat("=", 80))

	ctx, cancel := context.WithTimeout(context.Background(), decoderTimeout)
	defer cancel()

	timings := map[string]time.Duration{}
	start := time.Now()

	printStep(1, "Decoder Configuration")
	config, err := configs.LoadConfig()
	if err != nil {
		printError("Failed to load application config: %v", err)
		return fmt.Errorf("failed to load application config: %w", err)
	}
	decoder, extractor, err := app.NewComponents(config)
	if err != nil {
		printError("Failed to create decoder: %v", err)
		return err
	}
	printSuccess("Decoder configured (content type %s)", config.Decoder.ContentType)
	timings["config_loading"] = time.Since(start)

	printStep(2, "Format Detection")
	var format decode.Format
	if decoderFormat != "" {
		format, err = decode.ParseFormat(decoderFormat)
	} else {
		format, err = decode.FormatFromPath(path)
	}
	if err != nil {
		printError("%v", err)
		return err
	}
	printSuccess("Format: %s (%s)", format, format.MIMEType())

	printStep(3, "File Decoding")
	decodeStart := time.Now()
	sig, err := decoder.Decode(ctx, path, format)
	timings["file_decoding"] = time.Since(decodeStart)
	if err != nil {
		printError("Decoding failed: %v", err)
		return fmt.Errorf("decoding failed: %w", err)
	}
	printSuccess("File decoded successfully")
	displaySignalInfo(sig, verbose)

	printStep(4, "Metric Extraction")
	extractStart := time.Now()
	metrics, err := extractor.Extract(sig)
	timings["metric_extraction"] = time.Since(extractStart)
	if err != nil {
		printError("Extraction failed: %v", err)
		return err
	}
	printSuccess("Metrics extracted")
	printInfo("Silence Ratio: %.4f", metrics.SilenceRatio)
	if metrics.HasPitch() {
		printInfo("Average Pitch: %.2f Hz", metrics.AveragePitchHz)
	} else {
		printWarning("No pitch estimate: sample rate is too low for the pitch search band")
	}

	if verbose {
		printInfo("Performance Breakdown:")
		for _, event := range []string{"config_loading", "file_decoding", "metric_extraction"} {
			fmt.Printf("      %s: %v\n", titleCaser.String(strings.ReplaceAll(event, "_", " ")), timings[event])
		}
	}

	fmt.Printf("\nTotal Test Duration: %v\n", time.Since(start))
	return nil
}

func displaySignalInfo(sig *audio.Signal, verbose bool) {
	printInfo("Decoded Audio Properties:")
	fmt.Printf("      Samples: %d\n", sig.Len())
	fmt.Printf("      Sample Rate: %d Hz\n", sig.SampleRate)
	fmt.Printf("      Duration: %.3f seconds\n", sig.Duration().Seconds())

	if !verbose || sig.Len() == 0 {
		return
	}

	lo, hi := floats.Min(sig.Samples), floats.Max(sig.Samples)
	peak := math.Max(hi, -lo)
	rms := math.Sqrt(floats.Dot(sig.Samples, sig.Samples) / float64(sig.Len()))

	printInfo("Audio Statistics:")
	fmt.Printf("      Mean: %.6f\n", stat.Mean(sig.Samples, nil))
	fmt.Printf("      RMS: %.6f\n", rms)
	fmt.Printf("      Peak Amplitude: %.6f\n", peak)
	if hi > lo {
		fmt.Printf("      Dynamic Range: %.6f (%.2f dB)\n", hi-lo, 20*math.Log10(hi-lo))
	}

	if peak > 0.99 {
		printWarning("Potential clipping detected (peak > 0.99)")
	}
	if peak < speech.SilenceThreshold {
		printWarning("Every sample is below the silence threshold")
	}
}

func printStep(n int, title string) {
	fmt.Printf("\n%d. %s\n", n, title)
}

func printInfo(format string, args ...any) {
	fmt.Printf("   "+format+"\n", args...)
}

func printSuccess(format string, args ...any) {
	fmt.Printf("   "+ColorGreen+format+ColorReset+"\n", args...)
}

func printWarning(format string, args ...any) {
	fmt.Printf("   "+ColorYellow+format+ColorReset+"\n", args...)
}

func printError(format string, args ...any) {
	fmt.Printf("   "+ColorRed+format+ColorReset+"\n", args...)
}
