package metadata

import "math"

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// withinBoundingBox is the cheap prefilter used by the Redis backend before
// the exact haversine check: one degree spans roughly 111 km.
func withinBoundingBox(lat, lon, centerLat, centerLon, radiusKm float64) bool {
	degrees := radiusKm / 111.0
	return math.Abs(lat-centerLat) <= degrees && math.Abs(lon-centerLon) <= degrees
}
