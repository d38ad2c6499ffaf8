package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceZeroForEqualPoints(t *testing.T) {
	p := Coordinate{Latitude: -23.5505, Longitude: -46.6333}
	d, err := Distance(p, p)
	if err != nil {
		t.Fatalf("Distance() error: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Coordinate{Latitude: -23.5505, Longitude: -46.6333}
	b := Coordinate{Latitude: -22.9068, Longitude: -43.1729}

	ab, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance(a, b) error: %v", err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatalf("Distance(b, a) error: %v", err)
	}
	if ab != ba {
		t.Fatalf("expected symmetric distance, got %v and %v", ab, ba)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// One degree of latitude on a 6,371 km sphere is ~111.195 km.
	a := Coordinate{Latitude: 0, Longitude: 0}
	b := Coordinate{Latitude: 1, Longitude: 0}

	d, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance() error: %v", err)
	}
	if math.Abs(d-111195) > 10 {
		t.Fatalf("expected ~111195m, got %v", d)
	}
}

func TestDistanceMonotonicWithSeparation(t *testing.T) {
	origin := Coordinate{Latitude: 0, Longitude: 0}

	prev := -1.0
	for _, lng := range []float64{0.001, 0.01, 0.1, 1, 10} {
		d, err := Distance(origin, Coordinate{Latitude: 0, Longitude: lng})
		if err != nil {
			t.Fatalf("Distance() error: %v", err)
		}
		if d <= prev {
			t.Fatalf("expected distance to grow with separation, got %v after %v", d, prev)
		}
		prev = d
	}
}

func TestDistanceRejectsInvalidCoordinates(t *testing.T) {
	valid := Coordinate{Latitude: 0, Longitude: 0}

	cases := []Coordinate{
		{Latitude: 90.01, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 180.5},
		{Latitude: 0, Longitude: -181},
		{Latitude: math.NaN(), Longitude: 0},
	}

	for _, invalid := range cases {
		if _, err := Distance(valid, invalid); !errors.Is(err, ErrInvalidCoordinate) {
			t.Fatalf("expected ErrInvalidCoordinate for %+v, got %v", invalid, err)
		}
		if _, err := Distance(invalid, valid); !errors.Is(err, ErrInvalidCoordinate) {
			t.Fatalf("expected ErrInvalidCoordinate for %+v, got %v", invalid, err)
		}
	}
}
