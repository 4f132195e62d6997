package matcher

// DistanceToConfidence converts a cosine distance (range 0..2) to a
// confidence score (range 0..1).
//
// Cosine distance: 0 = identical direction, 2 = opposite.
// Confidence: 1 = perfect match, 0 = no match.
//
//	DistanceToConfidence(0) // => 1.0
//	DistanceToConfidence(1) // => 0.5
//	DistanceToConfidence(2) // => 0.0
//
// The result is clamped so distances slightly above 2 from floating-point
// error never produce a negative confidence.
func DistanceToConfidence(distance float64) float64 {
	confidence := 1 - distance/2
	if confidence < 0 {
		return 0
	}
	return confidence
}
