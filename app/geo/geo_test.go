package geo

import (
	"math"
	"testing"
)

func TestDistanceIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{-73.9857, 40.7484},
		{139.6917, 35.6895},
		{-180, -90},
	}

	for _, p := range points {
		d := Distance(p[0], p[1], p[0], p[1])
		if d != 0 {
			t.Errorf("Distance between identical points (%f, %f) = %f, expected 0", p[0], p[1], d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{-73.9857, 40.7484, -0.1276, 51.5074},
		{2.3522, 48.8566, 139.6917, 35.6895},
		{0, 0, 10, 10},
	}

	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Distance not symmetric: A->B = %f, B->A = %f", ab, ba)
		}
	}
}

func TestDistanceOneDegreeLatitude(t *testing.T) {
	// One degree of latitude along a meridian is R * pi / 180.
	expected := EarthRadiusKm * math.Pi / 180

	d := Distance(0, 0, 0, 1)
	if math.Abs(d-expected) > 0.01 {
		t.Errorf("Expected %f km for one degree of latitude, got %f", expected, d)
	}
}

func TestDistanceKnownCities(t *testing.T) {
	// Paris (2.3522, 48.8566) to London (-0.1276, 51.5074) is roughly 344 km.
	d := Distance(2.3522, 48.8566, -0.1276, 51.5074)
	if d < 330 || d > 360 {
		t.Errorf("Paris-London distance %f km outside expected range [330, 360]", d)
	}
}
