// Package geo provides pure geographic math for provider matching:
// great-circle distance and radius filtering. It performs no network calls;
// external routing distances are passed in by collaborators when available.
package geo

import "math"

// EarthRadiusKM is the mean Earth radius used for haversine distances.
const EarthRadiusKM = 6371.0

// MaxDistanceKM is the distance at which a candidate's distance score
// reaches zero.
const MaxDistanceKM = 50.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle distance between two points in
// kilometers using the haversine formula.
func Distance(a, b Point) float64 {
	latA := toRadians(a.Lat)
	latB := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKM * c
}

// WithinRadius reports whether candidate lies within radiusKm of origin.
func WithinRadius(origin Point, radiusKm float64, candidate Point) bool {
	return Distance(origin, candidate) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
