package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/output"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

var titleCaser = cases.Title(language.English)

// Section keys, in display order
const (
	SectionAnalysis        = "speech_pattern_analysis"
	SectionAssessment      = "developmental_assessment"
	SectionRecommendations = "therapy_recommendations"
)

// Metric display labels
const (
	LabelDuration     = "Duration (s)"
	LabelAveragePitch = "Average Pitch (Hz)"
	LabelSilenceRatio = "Silence Ratio"
	LabelClarityScore = "Clarity Score"
)

// NotAvailable is shown for undefined metrics
const NotAvailable = "n/a"

// Item is one labelled value of a section
type Item struct {
	Label string
	Value string
}

// Section is a titled group of items for text and HTML rendering
type Section struct {
	Key   string
	Title string
	Items []Item
}

// Sections lays a report out the way it is presented to the user
func Sections(rep *speech.Report, precision int) []Section {
	m := rep.Metrics

	recommendations := make([]Item, len(rep.Assessment.Recommendations))
	for i, r := range rep.Assessment.Recommendations {
		recommendations[i] = Item{Value: r}
	}

	return []Section{
		{
			Key:   SectionAnalysis,
			Title: Title(SectionAnalysis),
			Items: []Item{
				{Label: LabelDuration, Value: FormatValue(m.DurationSeconds, precision)},
				{Label: LabelAveragePitch, Value: FormatValue(m.AveragePitchHz, precision)},
				{Label: LabelSilenceRatio, Value: FormatValue(m.SilenceRatio, precision)},
				{Label: LabelClarityScore, Value: FormatValue(m.ClarityScore, precision)},
			},
		},
		{
			Key:   SectionAssessment,
			Title: Title(SectionAssessment),
			Items: []Item{{Value: rep.Assessment.Status}},
		},
		{
			Key:   SectionRecommendations,
			Title: Title(SectionRecommendations),
			Items: recommendations,
		},
	}
}

// Title turns a snake_case key into a title
func Title(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// FormatValue rounds v for display. Undefined values render as NotAvailable.
func FormatValue(v float64, precision int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	return strconv.FormatFloat(speech.Round(v, precision), 'f', -1, 64)
}

// Build returns the structured form of a report for the output formatters.
// Values are display-rounded; an undefined pitch becomes nil so JSON
// encoding does not fail on NaN.
func Build(rep *speech.Report, precision int) map[string]any {
	m := rep.Metrics
	recommendations := make([]string, len(rep.Assessment.Recommendations))
	copy(recommendations, rep.Assessment.Recommendations)

	return map[string]any{
		SectionAnalysis: map[string]any{
			"duration_seconds": displayNumber(m.DurationSeconds, precision),
			"average_pitch_hz": displayNumber(m.AveragePitchHz, precision),
			"silence_ratio":    displayNumber(m.SilenceRatio, precision),
			"clarity_score":    displayNumber(m.ClarityScore, precision),
		},
		SectionAssessment: map[string]any{
			"status": rep.Assessment.Status,
			"level":  string(rep.Assessment.Level),
		},
		SectionRecommendations: recommendations,
	}
}

func displayNumber(v float64, precision int) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return speech.Round(v, precision)
}

// Render formats data as json, yaml, csv or table. Unknown formats fall
// back to JSON.
func Render(data map[string]any, format string) ([]byte, error) {
	var formatter output.Formatter
	switch strings.ToLower(format) {
	case "json":
		formatter = &output.JSONFormatter{}
	case "yaml":
		formatter = &output.YAMLFormatter{}
	case "csv":
		formatter = &output.CSVFormatter{}
	case "table":
		formatter = &output.TableFormatter{}
	default:
		formatter = &output.JSONFormatter{}
	}

	formatted, err := formatter.Format(data, true)
	if err != nil {
		return nil, fmt.Errorf("failed to format report: %w", err)
	}
	return formatted, nil
}

// Text renders sections as plain text, one labelled line per item and a
// bullet per recommendation.
func Text(sections []Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", len(s.Title)))
		b.WriteString("\n")
		for _, item := range s.Items {
			switch {
			case item.Label != "":
				fmt.Fprintf(&b, "%s: %s\n", item.Label, item.Value)
			case s.Key == SectionRecommendations:
				fmt.Fprintf(&b, "- %s\n", item.Value)
			default:
				fmt.Fprintf(&b, "%s\n", item.Value)
			}
		}
	}
	return b.String()
}
