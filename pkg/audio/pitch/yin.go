package pitch

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Config holds YIN tracker parameters
type Config struct {
	FrameLength     int     `json:"frame_length"`
	HopLength       int     `json:"hop_length"`
	TroughThreshold float64 `json:"trough_threshold"`
	FMin            float64 `json:"fmin"`
	FMax            float64 `json:"fmax"`
}

// DefaultConfig returns the tracker defaults for the C2..C7 search band
func DefaultConfig() Config {
	return Config{
		FrameLength:     2048,
		HopLength:       512,
		TroughThreshold: 0.1,
		FMin:            MustNoteToHz("C2"),
		FMax:            MustNoteToHz("C7"),
	}
}

// Validate checks the tracker parameters
func (c Config) Validate() error {
	if c.FrameLength < 4 {
		return fmt.Errorf("frame length must be at least 4, got %d", c.FrameLength)
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("hop length must be positive, got %d", c.HopLength)
	}
	if c.TroughThreshold <= 0 || c.TroughThreshold > 1 {
		return fmt.Errorf("trough threshold must be in (0, 1], got %g", c.TroughThreshold)
	}
	if c.FMin <= 0 || c.FMax <= c.FMin {
		return fmt.Errorf("invalid frequency range [%g, %g]", c.FMin, c.FMax)
	}
	return nil
}

// YIN is a frame-wise fundamental frequency estimator after de Cheveigné
// and Kawahara (2002). Each frame is analyzed with a window of half the
// frame length; the remaining half bounds the longest detectable period.
type YIN struct {
	cfg          Config
	windowLength int
}

// NewYIN creates a tracker
func NewYIN(cfg Config) (*YIN, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &YIN{
		cfg:          cfg,
		windowLength: cfg.FrameLength / 2,
	}, nil
}

// Config returns the tracker parameters
func (y *YIN) Config() Config {
	return y.cfg
}

// FrameCount returns the number of frames Track emits for n samples
func (y *YIN) FrameCount(n int) int {
	return 1 + n/y.cfg.HopLength
}

// lagRange returns the period search range in samples. ok is false when
// the sample rate is too low to resolve any lag inside [FMin, FMax].
func (y *YIN) lagRange(sampleRate int) (tauMin, tauMax int, ok bool) {
	sr := float64(sampleRate)
	tauMin = max(1, int(math.Floor(sr/y.cfg.FMax)))
	tauMax = min(int(math.Floor(sr/y.cfg.FMin)), y.cfg.FrameLength-y.windowLength-1)
	return tauMin, tauMax, tauMin < tauMax
}

// Track returns one f0 estimate in Hz per frame. The signal is centered
// with FrameLength/2 zeros on each side. Frames without energy report 0;
// every frame reports NaN when the lag range is empty.
func (y *YIN) Track(samples []float64, sampleRate int) []float64 {
	frameLength := y.cfg.FrameLength
	numFrames := y.FrameCount(len(samples))
	estimates := make([]float64, numFrames)

	tauMin, tauMax, ok := y.lagRange(sampleRate)
	if !ok || sampleRate <= 0 {
		for i := range estimates {
			estimates[i] = math.NaN()
		}
		return estimates
	}

	padded := make([]float64, len(samples)+frameLength)
	copy(padded[frameLength/2:], samples)

	frame := make([]float64, frameLength)
	window := make([]float64, frameLength)
	energy := make([]float64, frameLength+1)
	cmnd := make([]float64, tauMax+2)

	for i := range numFrames {
		start := i * y.cfg.HopLength
		copy(frame, padded[start:start+frameLength])

		if floats.Dot(frame, frame) == 0 {
			estimates[i] = 0
			continue
		}

		y.normalizedDifference(frame, window, energy, cmnd)
		tau := y.pickPeriod(cmnd, tauMin, tauMax)
		period := float64(tau) + parabolicShift(cmnd, tau)
		estimates[i] = float64(sampleRate) / period
	}

	return estimates
}

// normalizedDifference fills cmnd[0:len(cmnd)] with the cumulative mean
// normalized difference of frame. window and energy are scratch buffers.
func (y *YIN) normalizedDifference(frame, window, energy, cmnd []float64) {
	w := y.windowLength

	// Cross-correlation of the frame with its first w samples. Lags never
	// exceed len(frame)-w so the circular product does not wrap.
	for j := range window {
		window[j] = 0
	}
	copy(window, frame[:w])
	a := fft.FFTReal(frame)
	b := fft.FFTReal(window)
	for k := range a {
		a[k] *= complex(real(b[k]), -imag(b[k]))
	}
	acf := fft.IFFT(a)

	energy[0] = 0
	for j, v := range frame {
		energy[j+1] = energy[j] + v*v
	}
	e0 := energy[w]

	cmnd[0] = 1
	var running float64
	for tau := 1; tau < len(cmnd); tau++ {
		d := e0 + (energy[tau+w] - energy[tau]) - 2*real(acf[tau])
		if d < 0 {
			d = 0
		}
		running += d
		if running == 0 {
			cmnd[tau] = 1
			continue
		}
		cmnd[tau] = d * float64(tau) / running
	}
}

// pickPeriod returns the first local minimum under the trough threshold,
// or the global minimum of the search range when none qualifies.
func (y *YIN) pickPeriod(cmnd []float64, tauMin, tauMax int) int {
	for tau := tauMin; tau <= tauMax; tau++ {
		if cmnd[tau] >= y.cfg.TroughThreshold {
			continue
		}
		left := tau == tauMin || cmnd[tau] < cmnd[tau-1]
		right := tau == tauMax || cmnd[tau] <= cmnd[tau+1]
		if left && right {
			return tau
		}
	}
	return tauMin + floats.MinIdx(cmnd[tauMin:tauMax+1])
}

// parabolicShift refines a lag index by fitting a parabola through its
// neighbours. The shift is bounded to (-1, 1).
func parabolicShift(x []float64, tau int) float64 {
	if tau < 1 || tau+1 >= len(x) {
		return 0
	}
	a := x[tau+1] + x[tau-1] - 2*x[tau]
	b := (x[tau+1] - x[tau-1]) / 2
	if math.Abs(b) >= math.Abs(a) {
		return 0
	}
	return -b / a
}

// Mean averages every estimate, including unvoiced zeros. A NaN estimate
// or an empty slice yields NaN.
func Mean(estimates []float64) float64 {
	if len(estimates) == 0 {
		return math.NaN()
	}
	return stat.Mean(estimates, nil)
}
