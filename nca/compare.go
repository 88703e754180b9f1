package nca

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTolerance bounds the acceptable drift between a backend's output
// and the sequential reference. Reduction order may differ on GPU, so
// bit-exactness is not required; anything past this is a correctness bug.
const DefaultTolerance = 1e-5

// CompareStates checks two flat state buffers for agreement within tol.
// Returns ErrDivergence naming the first offending index.
func CompareStates(got, want []float32, tol float64) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: state lengths differ, %d vs %d", ErrDivergence, len(got), len(want))
	}
	for i := range got {
		g, w := float64(got[i]), float64(want[i])
		if !scalar.EqualWithinAbsOrRel(g, w, tol, tol) {
			return fmt.Errorf("%w: index %d, got %v want %v (tol %v)", ErrDivergence, i, g, w, tol)
		}
	}
	return nil
}
