package landmark

import "math"

// epsilon guards every division against degenerate geometry. Degenerate
// inputs produce degraded features, never errors.
const epsilon = 1e-6

// distancePairs are the fixed landmark index pairs measured by the geometric
// distance group. Every distance is divided by the face width (jaw corner to
// jaw corner) for scale invariance. The order is fixed for reproducibility.
var distancePairs = [...][2]int{
	// eyes
	{36, 39}, {42, 45}, {37, 41}, {38, 40}, {43, 47}, {44, 46}, {36, 45}, {39, 42},
	// eyebrows
	{17, 21}, {22, 26}, {19, 24}, {17, 36}, {26, 45}, {19, 37}, {24, 44},
	// nose
	{27, 30}, {31, 35}, {30, 33}, {27, 33}, {30, 36}, {30, 45}, {30, 48}, {30, 54},
	// mouth
	{48, 54}, {51, 57}, {62, 66}, {49, 53}, {55, 59}, {31, 48}, {35, 54},
	// jaw structure
	{0, 8}, {8, 16}, {4, 12}, {2, 14}, {6, 10}, {1, 15}, {3, 13}, {5, 11},
	{7, 9}, {0, 36}, {16, 45}, {8, 57},
}

// NumFeatures is the length of every extracted feature vector:
// 42 geometric distances, 12 ratios, 4 shape features, 3 symmetry features.
const NumFeatures = len(distancePairs) + 12 + 4 + 3

// Extract converts a landmark set and its bounding box into a feature
// vector. The vector concatenates four feature groups in a fixed order and
// is unit-L2-normalized before being returned. Extraction fails only on a
// malformed landmark count; degenerate geometry is absorbed by epsilon
// guards.
func Extract(s Set, box BoundingBox) (FeatureVector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	faceWidth := dist(s[JawLeft], s[JawRight])
	v := make(FeatureVector, 0, NumFeatures)

	v = append(v, geometricDistances(s, faceWidth)...)
	v = append(v, ratioFeatures(s, faceWidth)...)
	v = append(v, shapeFeatures(s, box, faceWidth)...)
	v = append(v, symmetryFeatures(s)...)

	v.Normalize()
	return v, nil
}

func geometricDistances(s Set, faceWidth float64) []float64 {
	out := make([]float64, 0, len(distancePairs))
	for _, p := range distancePairs {
		out = append(out, dist(s[p[0]], s[p[1]])/(faceWidth+epsilon))
	}
	return out
}

// eyeAspectRatio is the classic EAR: vertical eye openings over horizontal
// eye width. The six indices starting at start follow the dlib eye contour
// ordering.
func eyeAspectRatio(s Set, start int) float64 {
	p := s[start : start+6]
	vertical := dist(p[1], p[5]) + dist(p[2], p[4])
	horizontal := dist(p[0], p[3])
	return vertical / (2*horizontal + epsilon)
}

func ratioFeatures(s Set, faceWidth float64) []float64 {
	browMid := Point{
		X: (s[19].X + s[24].X) / 2,
		Y: (s[19].Y + s[24].Y) / 2,
	}
	faceHeight := dist(browMid, s[Chin])

	leftEAR := eyeAspectRatio(s, LeftEyeOuter)
	rightEAR := eyeAspectRatio(s, RightEyeInner)

	return []float64{
		leftEAR,
		rightEAR,
		leftEAR / (rightEAR + epsilon),
		faceWidth / (faceHeight + epsilon),
		dist(browMid, s[NoseTip]) / (dist(s[NoseTip], s[Chin]) + epsilon),
		dist(s[NoseBridgeTop], s[NoseBase]) / (dist(s[NostrilLeft], s[NostrilRight]) + epsilon),
		dist(s[MouthLeft], s[MouthRight]) / (dist(s[UpperLipTop], s[LowerLipBot]) + epsilon),
		dist(s[UpperLipTop], s[UpperLipBot]) / (dist(s[LowerLipTop], s[LowerLipBot]) + epsilon),
		dist(s[NoseBase], s[UpperLipTop]) / (dist(s[NoseBridgeTop], s[NoseBase]) + epsilon),
		faceHeight / (faceWidth + epsilon),
		dist(s[LeftEyeInner], s[RightEyeInner]) / (faceWidth + epsilon),
		dist(s[MouthLeft], s[MouthRight]) / (faceWidth + epsilon),
	}
}

func shapeFeatures(s Set, box BoundingBox, faceWidth float64) []float64 {
	return []float64{
		jawContourAngle(s),
		box.Width / (box.Height + epsilon),
		dist(s[2], s[NostrilLeft]) / (faceWidth + epsilon),
		dist(s[14], s[NostrilRight]) / (faceWidth + epsilon),
	}
}

// jawContourAngle is the average turning angle along the 17-point jaw
// contour: the angle at each interior point between its two neighbors,
// summed and divided by the contour point count. Rounder jaws turn more per
// point than angular ones.
func jawContourAngle(s Set) float64 {
	var sum float64
	for i := JawLeft + 1; i < JawRight; i++ {
		ux, uy := s[i-1].X-s[i].X, s[i-1].Y-s[i].Y
		vx, vy := s[i+1].X-s[i].X, s[i+1].Y-s[i].Y
		nu := math.Hypot(ux, uy)
		nv := math.Hypot(vx, vy)
		if nu < epsilon || nv < epsilon {
			continue
		}
		cos := (ux*vx + uy*vy) / (nu * nv)
		sum += math.Acos(math.Max(-1, math.Min(1, cos)))
	}
	return sum / float64(JawRight-JawLeft+1)
}

func symmetryFeatures(s Set) []float64 {
	nose := s[NoseTip]
	leftEye := centroid(s, LeftEyeOuter, 41)
	rightEye := centroid(s, RightEyeInner, 47)

	// Summed mismatch between mirrored jaw point offsets from the nose
	// tip; a perfectly symmetric jaw scores 1.
	var jawDiff float64
	for i := 0; i < Chin; i++ {
		left := math.Abs(s[JawLeft+i].X - nose.X)
		right := math.Abs(s[JawRight-i].X - nose.X)
		jawDiff += math.Abs(left - right)
	}

	return []float64{
		dist(leftEye, nose) / (dist(rightEye, nose) + epsilon),
		dist(s[MouthLeft], nose) / (dist(s[MouthRight], nose) + epsilon),
		1 / (jawDiff + 1),
	}
}
