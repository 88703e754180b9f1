package nca

// Von Neumann neighborhood, radius 1. The enumeration order is part of the
// parameter contract: weight columns are laid out per neighbor in this order.
const (
	NhbdLen    = 5
	NhbdCenter = NhbdLen / 2
)

// Offset is a relative grid displacement sampled by the update kernel.
type Offset struct {
	DX, DY int
}

var neighborhood = [NhbdLen]Offset{
	{0, -1},
	{-1, 0},
	{0, 0},
	{1, 0},
	{0, 1},
}

// Neighborhood returns the fixed sampling pattern: north, west, center,
// east, south. The returned array is a copy; the pattern cannot be mutated.
func Neighborhood() [NhbdLen]Offset {
	return neighborhood
}
