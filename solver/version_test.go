package solver

import "testing"

func TestVercmpBasic(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		// Simple numeric ordering.
		{"1.0", "1.0", 0},
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.0.1", "1.0", 1},
		{"1.0", "1.0.1", -1},
		// Numeric segments compare as integers, not strings.
		{"1.10", "1.9", 1},
		{"1.002", "1.2", 0},
		{"01.0", "1.0", 0},
		// Alphanumeric mixing: numeric beats alphabetic.
		{"1.0a", "1.0", -1},
		{"1.0", "1.0a", 1},
		{"1.0a", "1.0b", -1},
		{"1.0rc1", "1.0rc2", -1},
		{"1.0.1", "1.0a", 1},
		// Separators do not contribute to equality.
		{"1_0", "1.0", 0},
		{"1.0", "1.0.", -1},
	}
	for _, c := range cases {
		if got := vercmp(c.a, c.b); got != c.want {
			t.Errorf("vercmp(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestVercmpEpochAndRelease(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		// Epoch dominates everything.
		{"1:1.0", "2.0", 1},
		{"1:1.0", "1:1.0", 0},
		{"2:0.1", "1:9.9", 1},
		{"0:1.0", "1.0", 0},
		// Release tail breaks pkgver ties.
		{"1.0-1", "1.0-2", -1},
		{"1.0-2", "1.0-1", 1},
		{"1.0-1", "1.0-1", 0},
		{"1.0-10", "1.0-9", 1},
		// A missing release on either side suppresses the comparison.
		{"1.0", "1.0-5", 0},
		{"1.0-5", "1.0", 0},
		// Release only matters after pkgver ties.
		{"1.1-1", "1.0-9", 1},
	}
	for _, c := range cases {
		if got := vercmp(c.a, c.b); got != c.want {
			t.Errorf("vercmp(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestVersionEqualIsVercmpEqual(t *testing.T) {
	a, b := Version("01.0-1"), Version("1.0-1")
	if !a.Equal(b) {
		t.Errorf("%q and %q should be vercmp-equal", a, b)
	}
	if a == b {
		t.Errorf("%q and %q should still differ textually", a, b)
	}
}
