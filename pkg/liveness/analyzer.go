// Package liveness decides whether a detected face is a live person or a
// flat-surface spoof (printed photo, screen replay). It combines pixel
// statistics of the face region with landmark micro-motion across frames.
package liveness

import (
	"fmt"
	"math"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
)

// Config holds the liveness calibration.
type Config struct {
	// Threshold is the minimum combined score accepted as live.
	Threshold float64
	// MotionWindow bounds the landmark motion history length.
	MotionWindow int
}

// DefaultConfig returns the calibration used in production.
func DefaultConfig() Config {
	return Config{
		Threshold:    0.60,
		MotionWindow: 5,
	}
}

// Scores are the four independent sub-scores, each in [0,1].
type Scores struct {
	Texture float64
	Color   float64
	Glare   float64
	Motion  float64
}

// Result is the per-frame liveness verdict.
type Result struct {
	IsLive     bool
	Confidence float64
	Scores     Scores
	Reason     string
}

// Sub-score combination weights.
const (
	textureWeight = 0.40
	colorWeight   = 0.30
	glareWeight   = 0.20
	motionWeight  = 0.10
)

const (
	// neutralScore is returned whenever a sub-score cannot be computed.
	// Failing open favors availability over false rejection; this is a
	// deliberate security trade-off and every occurrence is logged.
	neutralScore = 0.5

	bytesPerPixel = 4
	sampleStride  = 4
	borderMargin  = 2

	// Calibration constants, empirically tuned.
	textureVarianceNorm = 30.0
	screenBluePenalty   = 0.7
	glareBrightness     = 220.0
	glareFractionLow    = 0.05
	glareFractionHigh   = 0.20
	minNaturalMotion    = 0.3
	maxNaturalMotion    = 5.0
	suspiciousScore     = 0.6
	minMotionSamples    = 3
)

// keyPoints are the landmark positions tracked across frames: nose tip and
// the two outer eye corners.
type keyPoints [3]landmark.Point

// Analyzer scores frames for liveness. It owns the rolling motion history,
// which is session state: create one Analyzer per verification session, or
// call Reset when a new session starts, so stale motion never leaks in.
// An Analyzer is not safe for concurrent use.
type Analyzer struct {
	cfg     Config
	history []keyPoints
}

// NewAnalyzer creates an Analyzer. Zero-valued config fields fall back to
// defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MotionWindow <= 0 {
		cfg.MotionWindow = def.MotionWindow
	}
	return &Analyzer{cfg: cfg}
}

// Reset empties the motion history. Call at the start of every enrollment
// or verification session.
func (a *Analyzer) Reset() {
	a.history = a.history[:0]
}

// HistoryLen reports the current motion history length.
func (a *Analyzer) HistoryLen() int {
	return len(a.history)
}

// Analyze scores one frame. pixels is the raw RGBA buffer of the face
// region cropped to the detected bounding box (width*height*4 bytes); set is
// the full landmark set for the frame. Analyze never fails: any sub-score
// that cannot be computed scores neutral instead.
func (a *Analyzer) Analyze(pixels []byte, width, height int, set landmark.Set) Result {
	s := Scores{
		Texture: a.safeScore("texture", func() float64 { return textureScore(pixels, width, height) }),
		Color:   a.safeScore("color", func() float64 { return colorScore(pixels) }),
		Glare:   a.safeScore("glare", func() float64 { return glareScore(pixels) }),
		Motion:  a.safeScore("motion", func() float64 { return a.motionScore(set) }),
	}

	confidence := textureWeight*s.Texture + colorWeight*s.Color + glareWeight*s.Glare + motionWeight*s.Motion
	isLive := confidence >= a.cfg.Threshold

	var reason string
	if isLive {
		reason = fmt.Sprintf("liveness %.2f at or above threshold %.2f", confidence, a.cfg.Threshold)
	} else {
		reason = fmt.Sprintf("liveness %.2f below threshold %.2f (texture %.2f, color %.2f, glare %.2f, motion %.2f)",
			confidence, a.cfg.Threshold, s.Texture, s.Color, s.Glare, s.Motion)
	}

	return Result{
		IsLive:     isLive,
		Confidence: confidence,
		Scores:     s,
		Reason:     reason,
	}
}

// safeScore runs one sub-score computation and converts any panic into the
// neutral score. The overall liveness call must never fail.
func (a *Analyzer) safeScore(name string, fn func() float64) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warnf("liveness %s check failed, scoring neutral: %v", name, r)
			score = neutralScore
		}
	}()
	return fn()
}

func grayAt(pixels []byte, width, x, y int) float64 {
	i := (y*width + x) * bytesPerPixel
	return 0.299*float64(pixels[i]) + 0.587*float64(pixels[i+1]) + 0.114*float64(pixels[i+2])
}

// textureScore estimates micro-texture variance with a discrete
// Laplacian-like measure over a sparse interior grid. Real skin exhibits
// higher variance than flat photos or screens.
func textureScore(pixels []byte, width, height int) float64 {
	if width <= 2*borderMargin || height <= 2*borderMargin || len(pixels) < width*height*bytesPerPixel {
		return neutralScore
	}

	var sum float64
	count := 0
	for y := borderMargin; y < height-borderMargin; y += sampleStride {
		for x := borderMargin; x < width-borderMargin; x += sampleStride {
			center := grayAt(pixels, width, x, y)
			neighbors := (grayAt(pixels, width, x-1, y) +
				grayAt(pixels, width, x+1, y) +
				grayAt(pixels, width, x, y-1) +
				grayAt(pixels, width, x, y+1)) / 4
			d := center - neighbors
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return neutralScore
	}
	return math.Min(sum/float64(count)/textureVarianceNorm, 1.0)
}

// colorScore checks the per-channel variance profile. Screens tend to show
// unbalanced channel variances and a blue-shifted mean.
func colorScore(pixels []byte) float64 {
	var mean, m2 [3]float64
	count := 0
	for i := 0; i+2 < len(pixels); i += sampleStride * bytesPerPixel {
		for c := 0; c < 3; c++ {
			v := float64(pixels[i+c])
			mean[c] += v
			m2[c] += v * v
		}
		count++
	}
	if count == 0 {
		return neutralScore
	}

	var variance [3]float64
	for c := 0; c < 3; c++ {
		mean[c] /= float64(count)
		variance[c] = m2[c]/float64(count) - mean[c]*mean[c]
	}

	varSum := variance[0] + variance[1] + variance[2]
	varSpread := math.Abs(variance[0]-variance[1]) +
		math.Abs(variance[0]-variance[2]) +
		math.Abs(variance[1]-variance[2])
	balance := 1 - varSpread/(3*varSum+1)

	blueFactor := 1.0
	if mean[2] > (mean[0]+mean[1])/2 {
		blueFactor = screenBluePenalty
	}

	return clamp01(balance*blueFactor*0.8 + 0.2)
}

// glareScore looks for the rectangular highlight signature of a phone
// screen: a small but nontrivial fraction of very bright pixels.
func glareScore(pixels []byte) float64 {
	bright, count := 0, 0
	for i := 0; i+2 < len(pixels); i += sampleStride * bytesPerPixel {
		brightness := (float64(pixels[i]) + float64(pixels[i+1]) + float64(pixels[i+2])) / 3
		if brightness > glareBrightness {
			bright++
		}
		count++
	}
	if count == 0 {
		return neutralScore
	}
	fraction := float64(bright) / float64(count)
	if fraction > glareFractionLow && fraction < glareFractionHigh {
		return suspiciousScore
	}
	return 1.0
}

// motionScore tracks the nose tip and outer eye corners across successive
// frames of one session. Natural faces show small micro-movements; a photo
// is too static and a handheld screen too erratic.
func (a *Analyzer) motionScore(set landmark.Set) float64 {
	if set.Validate() != nil {
		return neutralScore
	}

	a.history = append(a.history, keyPoints{
		set[landmark.NoseTip],
		set[landmark.LeftEyeOuter],
		set[landmark.RightEyeOuter],
	})
	if len(a.history) > a.cfg.MotionWindow {
		a.history = a.history[len(a.history)-a.cfg.MotionWindow:]
	}
	if len(a.history) < minMotionSamples {
		return neutralScore
	}

	var total float64
	steps := 0
	for i := 1; i < len(a.history); i++ {
		for j := range a.history[i] {
			prev, cur := a.history[i-1][j], a.history[i][j]
			total += math.Hypot(cur.X-prev.X, cur.Y-prev.Y)
			steps++
		}
	}
	displacement := total / float64(steps)

	if displacement > minNaturalMotion && displacement < maxNaturalMotion {
		return 1.0
	}
	return suspiciousScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
