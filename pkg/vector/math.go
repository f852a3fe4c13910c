// Package vector provides the similarity math and shared errors used by the
// semantic database and the tag index.
package vector

import "math"

// Dot returns the dot product of a and b. Vectors of different length are
// rejected rather than truncated.
func Dot(a, b []float32) (float32, error) {
	if err := CheckDimensions(len(a), len(b)); err != nil {
		return 0, err
	}

	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// Cosine returns the cosine similarity of a and b given their precomputed
// magnitudes. A zero magnitude on either side scores 0.
func Cosine(a, b []float32, magA, magB float32) (float32, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}

	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (magA * magB), nil
}

// Clone returns a copy of v that shares no memory with it.
func Clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	cp := make([]float32, len(v))
	copy(cp, v)
	return cp
}
