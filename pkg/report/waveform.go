package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
)

// MaxWaveformPoints bounds the number of plotted points
const MaxWaveformPoints = 4000

// WaveformPoints returns plot points with time in seconds. Signals longer
// than maxPoints are reduced to a min/max envelope per bucket so peaks
// survive decimation.
func WaveformPoints(sig *audio.Signal, maxPoints int) plotter.XYs {
	n := sig.Len()
	if n == 0 || sig.SampleRate <= 0 {
		return nil
	}
	rate := float64(sig.SampleRate)

	if maxPoints < 2 || n <= maxPoints {
		pts := make(plotter.XYs, n)
		for i, v := range sig.Samples {
			pts[i].X = float64(i) / rate
			pts[i].Y = v
		}
		return pts
	}

	buckets := maxPoints / 2
	size := (n + buckets - 1) / buckets
	pts := make(plotter.XYs, 0, 2*buckets)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		bucket := sig.Samples[start:end]
		lo, hi := floats.MinIdx(bucket), floats.MaxIdx(bucket)
		first, second := start+lo, start+hi
		if hi < lo {
			first, second = second, first
		}
		pts = append(pts,
			plotter.XY{X: float64(first) / rate, Y: sig.Samples[first]},
			plotter.XY{X: float64(second) / rate, Y: sig.Samples[second]},
		)
	}
	return pts
}

// Waveform writes an SVG amplitude plot of the signal. width and height
// are in inches.
func Waveform(sig *audio.Signal, w io.Writer, width, height float64) error {
	pts := WaveformPoints(sig, MaxWaveformPoints)
	if len(pts) == 0 {
		return fmt.Errorf("cannot plot an empty signal")
	}

	p := plot.New()
	p.Title.Text = "Audio Waveform"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Amplitude"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build waveform line: %w", err)
	}
	p.Add(line)

	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "svg")
	if err != nil {
		return fmt.Errorf("failed to render waveform: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write waveform: %w", err)
	}
	return nil
}
