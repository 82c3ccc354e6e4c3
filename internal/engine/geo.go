package engine

import (
	"math"

	"weatheralert/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b types.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ImpactRadiusKm is the distance within which an earthquake of the given
// magnitude is considered locally significant.
func ImpactRadiusKm(magnitude float64) float64 {
	switch {
	case magnitude >= 8:
		return 1000
	case magnitude >= 7:
		return 500
	case magnitude >= 6:
		return 200
	case magnitude >= 5:
		return 100
	default:
		return 50
	}
}
