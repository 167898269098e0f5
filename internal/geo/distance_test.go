package geo

import (
	"math"
	"testing"
)

func TestHaversineMiles_ZeroDistance(t *testing.T) {
	d := HaversineMiles(10, 20, 10, 20)
	if d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineMiles_KnownPair(t *testing.T) {
	// Austin to Dallas is roughly 182 miles as the crow flies.
	d := HaversineMiles(30.2672, -97.7431, 32.7767, -96.7970)
	if d < 175 || d > 190 {
		t.Fatalf("Austin-Dallas = %v miles, want ~182", d)
	}
	if back := HaversineMiles(32.7767, -96.7970, 30.2672, -97.7431); math.Abs(back-d) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", d, back)
	}
}

func TestValidCoordinates(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, -180.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, tc := range cases {
		if got := ValidCoordinates(tc.lat, tc.lng); got != tc.want {
			t.Errorf("ValidCoordinates(%v, %v) = %v, want %v", tc.lat, tc.lng, got, tc.want)
		}
	}
}
