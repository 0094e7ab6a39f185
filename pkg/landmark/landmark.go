// Package landmark defines the facial landmark geometry produced by the
// upstream face detector and converts landmark sets into fixed-length,
// scale-invariant feature vectors suitable for comparison.
package landmark

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// NumPoints is the number of landmarks in a valid set. The indexing follows
// the dlib 68-point convention: 0-16 jaw, 17-26 eyebrows, 27-35 nose,
// 36-47 eyes, 48-67 mouth.
const NumPoints = 68

// Well-known landmark indices used throughout the pipeline.
const (
	JawLeft       = 0
	Chin          = 8
	JawRight      = 16
	NoseBridgeTop = 27
	NoseTip       = 30
	NostrilLeft   = 31
	NoseBase      = 33
	NostrilRight  = 35
	LeftEyeOuter  = 36
	LeftEyeInner  = 39
	RightEyeInner = 42
	RightEyeOuter = 45
	MouthLeft     = 48
	MouthRight    = 54
	UpperLipTop   = 51
	LowerLipBot   = 57
	UpperLipBot   = 62
	LowerLipTop   = 66
)

// ErrMalformedLandmarks is returned when a landmark set does not contain
// exactly NumPoints points.
var ErrMalformedLandmarks = errors.New("malformed landmark set")

// Point is a 2D point in the pixel space of the current frame.
type Point struct {
	X, Y float64
}

// Set is an ordered sequence of facial landmarks. A valid set holds exactly
// NumPoints entries; sets are treated as immutable once produced.
type Set []Point

// Validate checks the landmark count.
func (s Set) Validate() error {
	if len(s) != NumPoints {
		return ErrMalformedLandmarks
	}
	return nil
}

// BoundingBox is the detected face region in the same pixel space as the
// landmarks. Width and Height are strictly positive when valid.
type BoundingBox struct {
	X, Y          float64
	Width, Height float64
}

// FeatureVector is a fixed-length, unit-L2-normalized description of facial
// geometry. The only exception to the unit norm is the degenerate zero
// vector, which normalization leaves unchanged.
type FeatureVector []float64

// Norm returns the Euclidean norm of the vector.
func (v FeatureVector) Norm() float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// Normalize scales the vector to unit L2 norm in place. A zero vector is
// left unchanged rather than dividing by zero.
func (v FeatureVector) Normalize() {
	n := v.Norm()
	if n == 0 {
		return
	}
	floats.Scale(1/n, v)
}

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	if v == nil {
		return nil
	}
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// Mean averages several feature vectors of equal length and renormalizes the
// result. Combining multiple extractions of the same face smooths out
// per-frame landmark jitter during enrollment.
func Mean(vectors []FeatureVector) FeatureVector {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0].Clone()
	}

	avg := make(FeatureVector, len(vectors[0]))
	for _, v := range vectors {
		if len(v) != len(avg) {
			return nil
		}
		floats.Add(avg, v)
	}
	floats.Scale(1/float64(len(vectors)), avg)
	avg.Normalize()
	return avg
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func centroid(s Set, from, to int) Point {
	var c Point
	n := float64(to - from + 1)
	for i := from; i <= to; i++ {
		c.X += s[i].X
		c.Y += s[i].Y
	}
	c.X /= n
	c.Y /= n
	return c
}
