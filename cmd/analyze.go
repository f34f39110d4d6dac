package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-analyzer/internal/app"
)

var (
	// Analyze command flags
	analyzeFormat      string
	analyzeProfile     string
	analyzeWaveform    string
	analyzeOutputFile  string
	analyzeMaxDuration time.Duration
	analyzePrecision   int
	analyzeMetrics     bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] FILE",
	Short: "Analyze a speech recording",
	Long: `Decode a WAV, MP3 or FLAC recording, extract speech metrics and print
the developmental assessment with therapy recommendations.

Examples:
  # Analyze a recording and print a table
  speech-analyzer analyze recording.wav

  # JSON report plus a waveform plot
  speech-analyzer analyze -o json --waveform waveform.svg recording.mp3

  # Use a profile with custom pitch framing and write the report to a file
  speech-analyzer analyze --profile toddler.yaml --output-file report.yaml -o yaml recording.flac

  # Force the format when the file has no usable extension
  speech-analyzer analyze --format flac upload.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "",
		"audio format (wav, mp3, flac); defaults to the file extension")
	analyzeCmd.Flags().StringVar(&analyzeProfile, "profile", "",
		"analysis profile file (YAML or JSON) overriding pitch settings")
	analyzeCmd.Flags().StringVar(&analyzeWaveform, "waveform", "",
		"write an SVG waveform plot to this path")
	analyzeCmd.Flags().StringVar(&analyzeOutputFile, "output-file", "",
		"write the report to this path instead of stdout")
	analyzeCmd.Flags().DurationVar(&analyzeMaxDuration, "max-duration", 0,
		"analyze at most this much audio (0 keeps the whole recording)")
	analyzeCmd.Flags().IntVar(&analyzePrecision, "precision", 2,
		"decimal places in the report")
	analyzeCmd.Flags().BoolVar(&analyzeMetrics, "metrics", false,
		"emit analysis metrics to the metrics log")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &app.Context{
		InputFile:    args[0],
		Format:       analyzeFormat,
		ProfileFile:  analyzeProfile,
		OutputFile:   analyzeOutputFile,
		OutputFormat: viper.GetString("output_format"),
		WaveformFile: analyzeWaveform,
		Verbose:      viper.GetBool("verbose"),
	}

	analyzer, err := app.NewAnalyzerApp(appCtx)
	if err != nil {
		return err
	}

	return analyzer.Run(ctx)
}
