package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClarityScoreStaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ratio := rapid.Float64Range(-10, 10).Draw(rt, "ratio")

		score := ClarityScore(ratio)

		assert.GreaterOrEqual(rt, score, 0.0)
		assert.LessOrEqual(rt, score, 100.0)
		if ratio >= 0 && ratio <= 1 {
			assert.InDelta(rt, 100-100*ratio, score, 1e-9)
		}
	})
}

func TestSilenceRatioIsAFraction(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 500).Draw(rt, "n")
		samples := make([]float64, n)
		silent := 0
		for i := range samples {
			samples[i] = rapid.Float64Range(-1, 1).Draw(rt, "sample")
			if samples[i] > -SilenceThreshold && samples[i] < SilenceThreshold {
				silent++
			}
		}

		ratio := SilenceRatio(samples)

		assert.GreaterOrEqual(rt, ratio, 0.0)
		assert.LessOrEqual(rt, ratio, 1.0)
		assert.InDelta(rt, float64(silent)/float64(n), ratio, 1e-12)
	})
}

func TestAssessRulesHold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clarity := rapid.Float64Range(0, 100).Draw(rt, "clarity")
		duration := rapid.Float64Range(0, 30).Draw(rt, "duration")

		result := Assess(clarity, duration)

		assert.Equal(rt, result.Level.Status(), result.Status)
		switch result.Level {
		case LevelNormal:
			assert.Greater(rt, clarity, 85.0)
			assert.Greater(rt, duration, 2.0)
		case LevelSlightlyDelayed:
			assert.Greater(rt, clarity, 60.0)
			assert.False(rt, clarity > 85 && duration > 2)
		case LevelNeedsAttention:
			assert.LessOrEqual(rt, clarity, 60.0)
		default:
			rt.Fatalf("unexpected level %q", result.Level)
		}

		if clarity < 70 {
			assert.Equal(rt, articulationPair, result.Recommendations)
		} else {
			assert.Equal(rt, maintenanceOnly, result.Recommendations)
		}
	})
}
