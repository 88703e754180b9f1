package nca

import "testing"

// TestNeighborhoodOrder pins the exact offsets and their enumeration order;
// the parameter layout depends on it.
func TestNeighborhoodOrder(t *testing.T) {
	want := [NhbdLen]Offset{{0, -1}, {-1, 0}, {0, 0}, {1, 0}, {0, 1}}
	got := Neighborhood()
	if got != want {
		t.Errorf("neighborhood order: got %v, want %v", got, want)
	}
	if got[NhbdCenter] != (Offset{0, 0}) {
		t.Errorf("center offset: got %v, want (0,0)", got[NhbdCenter])
	}
}

// TestNeighborhoodRoundTrip samples absolute positions for a cell and
// re-derives the relative offsets from them.
func TestNeighborhoodRoundTrip(t *testing.T) {
	const x, y = 7, 11
	for i, off := range Neighborhood() {
		ax, ay := x+off.DX, y+off.DY
		back := Offset{ax - x, ay - y}
		if back != off {
			t.Errorf("offset %d: round trip gave %v, want %v", i, back, off)
		}
	}
}

// TestNeighborhoodImmutable: the accessor returns a copy, so callers cannot
// corrupt the pattern.
func TestNeighborhoodImmutable(t *testing.T) {
	n := Neighborhood()
	n[0] = Offset{9, 9}
	if Neighborhood()[0] != (Offset{0, -1}) {
		t.Error("mutating the returned array changed the package pattern")
	}
}
