package nca

import "fmt"

// BoundaryPolicy fixes what an edge cell observes when a neighborhood offset
// lands outside the grid. The policy is total and deterministic, and every
// backend of the same executor configuration must apply the same one.
type BoundaryPolicy int

const (
	// BoundaryZero treats out-of-grid neighbors as an all-zero channel
	// vector. The default; matches the reference behavior of skipping
	// out-of-bounds samples entirely.
	BoundaryZero BoundaryPolicy = iota
	// BoundaryClamp samples the nearest in-grid cell.
	BoundaryClamp
	// BoundaryWrap samples toroidally.
	BoundaryWrap
)

func (b BoundaryPolicy) String() string {
	switch b {
	case BoundaryZero:
		return "zero"
	case BoundaryClamp:
		return "clamp"
	case BoundaryWrap:
		return "wrap"
	}
	return fmt.Sprintf("BoundaryPolicy(%d)", int(b))
}

// ParseBoundaryPolicy maps a config string to a policy.
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch s {
	case "zero", "":
		return BoundaryZero, nil
	case "clamp":
		return BoundaryClamp, nil
	case "wrap":
		return BoundaryWrap, nil
	}
	return 0, fmt.Errorf("unknown boundary policy %q", s)
}

// Resolve maps a sampled position to an in-grid position. ok is false only
// under BoundaryZero with (x, y) outside the grid, in which case the sample
// contributes a zero vector.
func (b BoundaryPolicy) Resolve(x, y, width, height int) (rx, ry int, ok bool) {
	if x >= 0 && x < width && y >= 0 && y < height {
		return x, y, true
	}
	switch b {
	case BoundaryClamp:
		return clamp(x, width), clamp(y, height), true
	case BoundaryWrap:
		return wrap(x, width), wrap(y, height), true
	}
	return 0, 0, false
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
