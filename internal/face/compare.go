package face

import "math"

// DefaultThreshold is the cosine distance below which two face templates
// are considered the same person.
const DefaultThreshold = 0.4

// CosineDistance computes the cosine distance between two templates.
// Returns a value between 0 (identical) and 2 (opposite); invalid input
// yields the maximum distance so a broken template can never verify.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// Match reports whether the probe template belongs to the enrolled person.
// A non-positive threshold selects the default.
func Match(enrolled, probe []float32, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return CosineDistance(enrolled, probe) <= threshold
}
