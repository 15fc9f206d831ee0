// sim/metrics_utils.go
package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type IntOrFloat64 interface {
	int | int64 | float64
}

// Sum adds up a data list.
func Sum[T IntOrFloat64](numbers []T) float64 {
	sum := 0.0
	for _, number := range numbers {
		sum += float64(number)
	}
	return sum
}

// CalculateMean is a util function that calculates the mean of a data list.
// Returns 0 for an empty list.
func CalculateMean[T IntOrFloat64](numbers []T) float64 {
	if len(numbers) == 0 {
		return 0.0
	}
	return Sum(numbers) / float64(len(numbers))
}

// CalculateStdDev returns the population standard deviation of a data list.
// Returns 0 for an empty list.
func CalculateStdDev[T IntOrFloat64](numbers []T) float64 {
	if len(numbers) == 0 {
		return 0.0
	}
	xs := make([]float64, len(numbers))
	for i, n := range numbers {
		xs[i] = float64(n)
	}
	// The compensated variance can round just below zero for identical values.
	return math.Sqrt(math.Max(0, stat.PopVariance(xs, nil)))
}
