package speech

// Developmental status sentences
const (
	StatusWithinNormalRange = "Speech development is within normal range."
	StatusSlightlyDelayed   = "Speech development is slightly delayed. Monitoring recommended."
	StatusNeedsAttention    = "Speech development may require attention. Consider evaluation by a speech therapist."
)

// Therapy recommendation sentences
const (
	RecommendArticulationExercises = "Practice articulation exercises daily."
	RecommendSimpleWords           = "Use simple words and repetition to improve clarity."
	RecommendMaintainPractice      = "Maintain current speech practice and activities."
)

// StatusLevel is a machine readable form of the status sentence
type StatusLevel string

const (
	LevelNormal          StatusLevel = "normal"
	LevelSlightlyDelayed StatusLevel = "slightly_delayed"
	LevelNeedsAttention  StatusLevel = "needs_attention"
)

// Classification thresholds. The status and recommendation rules are
// independent and intentionally use different cut-offs.
const (
	normalClarityThreshold       = 85.0
	normalDurationThreshold      = 2.0
	delayedClarityThreshold      = 60.0
	articulationClarityThreshold = 70.0
)

// AssessmentResult is the textual outcome of the threshold rules
type AssessmentResult struct {
	Status          string      `json:"status"`
	Level           StatusLevel `json:"level"`
	Recommendations []string    `json:"recommendations"`
}

// Assess classifies a clarity score and duration. It is total over all
// float64 inputs: comparisons with NaN are false, so NaN clarity routes
// to StatusNeedsAttention and to the maintenance recommendation.
func Assess(clarityScore, durationSeconds float64) AssessmentResult {
	level := Classify(clarityScore, durationSeconds)
	return AssessmentResult{
		Status:          level.Status(),
		Level:           level,
		Recommendations: TherapyRecommendations(clarityScore),
	}
}

// Classify applies the status rules in order; the first match wins
func Classify(clarityScore, durationSeconds float64) StatusLevel {
	switch {
	case clarityScore > normalClarityThreshold && durationSeconds > normalDurationThreshold:
		return LevelNormal
	case clarityScore > delayedClarityThreshold:
		return LevelSlightlyDelayed
	default:
		return LevelNeedsAttention
	}
}

// DevelopmentalStatus returns the status sentence for a clarity score and duration
func DevelopmentalStatus(clarityScore, durationSeconds float64) string {
	return Classify(clarityScore, durationSeconds).Status()
}

// Status returns the sentence for a level
func (l StatusLevel) Status() string {
	switch l {
	case LevelNormal:
		return StatusWithinNormalRange
	case LevelSlightlyDelayed:
		return StatusSlightlyDelayed
	default:
		return StatusNeedsAttention
	}
}

// TherapyRecommendations returns the ordered suggestions for a clarity
// score. The returned slice is owned by the caller.
func TherapyRecommendations(clarityScore float64) []string {
	if clarityScore < articulationClarityThreshold {
		return []string{
			RecommendArticulationExercises,
			RecommendSimpleWords,
		}
	}
	return []string{RecommendMaintainPractice}
}
