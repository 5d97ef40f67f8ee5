package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Point
		wantKM float64
		tolKM  float64
	}{
		{
			name:   "Amsterdam to Rotterdam",
			a:      Point{Lat: 52.3676, Lng: 4.9041},
			b:      Point{Lat: 51.9244, Lng: 4.4777},
			wantKM: 57.5,
			tolKM:  1.5,
		},
		{
			name:   "Amsterdam to Utrecht",
			a:      Point{Lat: 52.3676, Lng: 4.9041},
			b:      Point{Lat: 52.0907, Lng: 5.1214},
			wantKM: 34.3,
			tolKM:  1.5,
		},
		{
			name:   "same point",
			a:      Point{Lat: 52.0, Lng: 5.0},
			b:      Point{Lat: 52.0, Lng: 5.0},
			wantKM: 0,
			tolKM:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.wantKM) > tt.tolKM {
				t.Errorf("Distance() = %.2f km, want %.2f +- %.2f", got, tt.wantKM, tt.tolKM)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Point{Lat: 52.3676, Lng: 4.9041}
	b := Point{Lat: 51.4416, Lng: 5.4697}
	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestWithinRadius(t *testing.T) {
	amsterdam := Point{Lat: 52.3676, Lng: 4.9041}
	utrecht := Point{Lat: 52.0907, Lng: 5.1214}

	if !WithinRadius(amsterdam, 40, utrecht) {
		t.Error("Utrecht should be within 40 km of Amsterdam")
	}
	if WithinRadius(amsterdam, 20, utrecht) {
		t.Error("Utrecht should not be within 20 km of Amsterdam")
	}
}
