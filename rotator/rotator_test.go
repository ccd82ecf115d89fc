package rotator

import (
	"math"
	"testing"
)

func TestAzimuth(t *testing.T) {
	for _, test := range []struct {
		in, normal, signed float64
	}{
		{0, 0, 0},
		{90, 90, 90},
		{180, 180, 180},
		{270, 270, -90},
		{360, 0, 0},
		{-90, 270, -90},
		{725, 5, 5},
		{-360, 0, 0},
	} {
		if got := NormalizeAzimuth(test.in); got != test.normal {
			t.Errorf("NormalizeAzimuth(%v) = %v, want %v", test.in, got, test.normal)
		}
		if got := SignedAzimuth(test.in); got != test.signed {
			t.Errorf("SignedAzimuth(%v) = %v, want %v", test.in, got, test.signed)
		}
	}
	if got := NormalizeAzimuth(math.Inf(1)); !math.IsNaN(got) {
		t.Errorf("NormalizeAzimuth(+Inf) = %v, want NaN", got)
	}
}
