// Package similarity decides whether two facial feature vectors belong to
// the same person. It blends three distance signals into one calibrated
// score and maps the score onto discrete confidence levels.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
)

// Level classifies a similarity score. Levels partition the confidence axis
// without overlap; the first matching band wins.
type Level string

const (
	LevelVeryHigh  Level = "very_high"
	LevelHigh      Level = "high"
	LevelMedium    Level = "medium"
	LevelUncertain Level = "uncertain"
	LevelLow       Level = "low"
)

// Result is the outcome of a single comparison. It is derived per call and
// never persisted.
type Result struct {
	Similarity float64
	IsSame     bool
	Level      Level
	Threshold  float64
}

// Config holds the calibrated decision cutoffs. The defaults are empirically
// tuned values, not derived ones; treat them as calibration inputs.
type Config struct {
	// Threshold is the minimum similarity accepted as a match.
	Threshold float64
	// HighCutoff and VeryHighCutoff bound the upper confidence bands.
	HighCutoff     float64
	VeryHighCutoff float64
}

// DefaultConfig returns the calibration used in production.
func DefaultConfig() Config {
	return Config{
		Threshold:      0.78,
		HighCutoff:     0.84,
		VeryHighCutoff: 0.90,
	}
}

// Signal weights and strictness penalty calibration.
const (
	cosineWeight    = 0.60
	euclideanWeight = 0.25
	manhattanWeight = 0.15

	uncertainCutoff = 0.60

	// A single component drifting far from its counterpart drags the
	// score down even when the aggregate signals agree.
	maxRelativeDeviation = 0.30
	minAbsoluteDeviation = 0.04
	penaltyScale         = 0.4
	maxPenalty           = 0.12

	epsilon = 1e-6
)

// Engine compares feature vectors under a fixed calibration.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine. Zero-valued cutoffs fall back to defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.HighCutoff <= 0 {
		cfg.HighCutoff = def.HighCutoff
	}
	if cfg.VeryHighCutoff <= 0 {
		cfg.VeryHighCutoff = def.VeryHighCutoff
	}
	return &Engine{cfg: cfg}
}

// Compare scores two vectors against the engine's configured threshold.
func (e *Engine) Compare(a, b landmark.FeatureVector) Result {
	return e.CompareThreshold(a, b, e.cfg.Threshold)
}

// CompareThreshold scores two vectors with an explicit match threshold.
// Vectors of different lengths are truncated to the shorter length before
// comparison, so vectors from different extractor revisions remain
// comparable. Missing input yields similarity 0 at LevelLow, never an error.
func (e *Engine) CompareThreshold(a, b landmark.FeatureVector, threshold float64) Result {
	if len(a) == 0 || len(b) == 0 {
		return Result{Level: LevelLow, Threshold: threshold}
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	a, b = a[:n], b[:n]

	// Inputs are unit-L2 vectors, so the dot product is the cosine.
	cosine := floats.Dot(a, b)
	euclidean := 1 / (1 + floats.Distance(a, b, 2))

	var absSum, maxAbs, maxRel float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		absSum += d
		if d > maxAbs {
			maxAbs = d
		}
		if rel := d / (math.Abs(a[i]) + epsilon); rel > maxRel {
			maxRel = rel
		}
	}
	manhattan := 1 / (1 + absSum)

	score := cosineWeight*cosine + euclideanWeight*euclidean + manhattanWeight*manhattan

	// The absolute-difference guard keeps tiny-magnitude noise from
	// triggering the relative-deviation penalty.
	if maxRel > maxRelativeDeviation && maxAbs > minAbsoluteDeviation {
		score -= math.Min((maxRel-maxRelativeDeviation)*penaltyScale, maxPenalty)
	}
	if score < 0 {
		score = 0
	}

	return e.classify(score, threshold)
}

func (e *Engine) classify(score, threshold float64) Result {
	r := Result{Similarity: score, Threshold: threshold}
	switch {
	case score >= e.cfg.VeryHighCutoff:
		r.Level, r.IsSame = LevelVeryHigh, true
	case score >= e.cfg.HighCutoff:
		r.Level, r.IsSame = LevelHigh, true
	case score >= threshold:
		r.Level, r.IsSame = LevelMedium, true
	case score >= uncertainCutoff:
		r.Level = LevelUncertain
	default:
		r.Level = LevelLow
	}
	return r
}
