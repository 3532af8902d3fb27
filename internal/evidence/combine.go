package evidence

import (
	"remedy/internal/errors"
)

// DefaultEpsilon is the tolerance used for floating point comparisons.
const DefaultEpsilon = 1e-9

// ErrTotalConflict is returned when every pair of focal sets is disjoint, so
// the conflict mass K reaches 1 and Dempster's rule is undefined.
var ErrTotalConflict = errors.New("total conflict: combined evidence is contradictory")

// Combine applies Dempster's rule of combination to a and b. It returns the
// normalised result together with the conflict mass K.
func Combine(a, b Mass) (Mass, float64, error) {
	return combine(a, b, DefaultEpsilon)
}

func combine(a, b Mass, eps float64) (Mass, float64, error) {
	var acc massBuilder
	var k float64

	// Iterate in canonical order so floating point sums are reproducible.
	for _, fa := range a.Focals() {
		for _, fb := range b.Focals() {
			product := fa.Mass * fb.Mass
			inter, ok := fa.Label.Intersect(fb.Label)
			if !ok {
				k += product
				continue
			}
			acc.add(inter, product)
		}
	}

	if 1-k <= eps {
		return Mass{}, k, errors.WithDetailf(ErrTotalConflict, "K=%.6f", k)
	}
	acc.scale(1 / (1 - k))
	return acc.build(), k, nil
}
