package metric

import (
	"errors"
	"math"

	"github.com/hupe1980/s3vkit/model"
)

// ErrSizeMismatch is returned when two vectors differ in length.
var ErrSizeMismatch = errors.New("vector sizes do not match")

// Dot calculates the dot product of two equal-length float32 slices.
func Dot(v1, v2 []float32) float32 {
	var sum float32
	for i := range v1 {
		sum += v1[i] * v2[i]
	}
	return sum
}

// Magnitude calculates the magnitude (length) of a float32 slice.
func Magnitude(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// CosineSimilarity calculates the cosine similarity between two float32 slices.
func CosineSimilarity(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}

	dotProduct := Dot(v1, v2)
	magnitudeA := Magnitude(v1)
	magnitudeB := Magnitude(v2)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return dotProduct / (magnitudeA * magnitudeB), nil
}

// CosineDistance returns 1 - CosineSimilarity.
func CosineDistance(v1, v2 []float32) (float32, error) {
	sim, err := CosineSimilarity(v1, v2)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// SquaredL2 calculates the squared L2 distance between two float32 slices.
func SquaredL2(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}

	var sum float32
	for i := range v1 {
		d := v1[i] - v2[i]
		sum += d * d
	}
	return sum, nil
}

// Euclidean calculates the L2 distance between two float32 slices.
func Euclidean(v1, v2 []float32) (float32, error) {
	sq, err := SquaredL2(v1, v2)
	if err != nil {
		return 0, err
	}
	return float32(math.Sqrt(float64(sq))), nil
}

// Distance dispatches to the distance function of m.
func Distance(m model.Metric, v1, v2 []float32) (float32, error) {
	switch m {
	case model.MetricCosine:
		return CosineDistance(v1, v2)
	case model.MetricEuclidean:
		return Euclidean(v1, v2)
	default:
		return 0, errors.New("unsupported metric: " + string(m))
	}
}
